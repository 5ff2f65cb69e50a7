package assessor

import "fmt"

const systemPrompt = "You are a nutrition-aware assistant specialising in packaged foods. You always answer with a single JSON object and nothing else."

const userPromptTemplate = `The text below was recognised from a photographed food label and may contain OCR mistakes.

1. Repair obvious OCR errors from context and drop text that is not an ingredient.
2. List the ingredients in label order.
3. Flag harmful, controversial or allergenic ingredients (sweeteners, emulsifiers, preservatives, soy, gluten and similar) with a risk level of "low", "moderate" or "high" and a one or two sentence reason.
4. Give a health score from 1 (avoid) to 5 (very healthy): add for whole-food content, vitamins or fibre; subtract for two or more additives, high sugar or sodium, or allergen-prone ingredients.
5. Write a neutral, friendly recommendation for the general public, saying whether it suits frequent, occasional or rare consumption and which age groups or conditions should take care.
6. Finish with a short summary note for non-experts.

If nothing is harmful, return an empty harmfulIngredients array and say so plainly.

OCR text:
"""
%s
"""

Respond with JSON shaped exactly like:
{
  "ingredients": ["ingredient1", "ingredient2"],
  "harmfulIngredients": [{"name": "ingredient", "riskLevel": "low | moderate | high", "reason": "..."}],
  "healthScore": 3,
  "recommendation": "...",
  "summaryNote": "..."
}`

func buildUserPrompt(text string) string {
	return fmt.Sprintf(userPromptTemplate, text)
}
