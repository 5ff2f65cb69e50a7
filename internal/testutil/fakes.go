package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"Label-Scanner-Backend/domain"
)

// FakeArchiver records archived paths. It fails when Err is set and reports
// whether the local file still existed at call time.
type FakeArchiver struct {
	mu       sync.Mutex
	Err      error
	Calls    []string
	Missing  []string
	BaseURL  string
	Blocker  chan struct{}
	archived int
}

// Archive records the call, then waits on Blocker when set. The file is
// checked after the wait so a removal while blocked shows up in Missing.
func (f *FakeArchiver) Archive(ctx context.Context, pathOrURL string) (string, error) {
	f.mu.Lock()
	f.Calls = append(f.Calls, pathOrURL)
	blocker := f.Blocker
	f.mu.Unlock()

	if blocker != nil {
		select {
		case <-blocker:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.HasPrefix(pathOrURL, "http") {
		if _, err := os.Stat(pathOrURL); err != nil {
			f.Missing = append(f.Missing, pathOrURL)
		}
	}
	if f.Err != nil {
		return "", f.Err
	}
	f.archived++
	return fmt.Sprintf("%s/products/%d.png", f.baseURL(), f.archived), nil
}

func (f *FakeArchiver) IsArchived(url string) bool {
	return strings.HasPrefix(url, f.baseURL())
}

func (f *FakeArchiver) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

func (f *FakeArchiver) baseURL() string {
	if f.BaseURL == "" {
		return "https://labels.s3.ap-south-1.amazonaws.com"
	}
	return f.BaseURL
}

// FakeAssessor returns Result (or Err) and records the texts it was given.
type FakeAssessor struct {
	mu     sync.Mutex
	Result *domain.Assessment
	Err    error
	Texts  []string
}

func (f *FakeAssessor) Assess(ctx context.Context, text string) (*domain.Assessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Texts = append(f.Texts, text)
	if f.Err != nil {
		return nil, f.Err
	}
	if f.Result == nil {
		return nil, nil
	}
	out := *f.Result
	return &out, nil
}

func (f *FakeAssessor) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Texts)
}

// FakeRecognizer returns Text (or Err) for any path.
type FakeRecognizer struct {
	mu    sync.Mutex
	Text  string
	Err   error
	Paths []string
}

func (f *FakeRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Paths = append(f.Paths, imagePath)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

// SampleAssessment is a valid assessment used across tests.
func SampleAssessment() *domain.Assessment {
	return &domain.Assessment{
		Ingredients: []string{"Sugar", "Salt", "Palm Oil"},
		HarmfulIngredients: []domain.HarmfulIngredient{
			{Name: "Palm Oil", RiskLevel: domain.RiskModerate, Reason: "High in saturated fat."},
			{Name: "Sugar", RiskLevel: domain.RiskHigh, Reason: "Added sugar."},
		},
		HealthScore:    2,
		Recommendation: "Fine as an occasional snack.",
		SummaryNote:    "Sugary, fatty snack.",
	}
}
