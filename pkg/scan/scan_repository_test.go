package scan

import (
	"context"
	"testing"
	"time"

	"Label-Scanner-Backend/domain"
	"Label-Scanner-Backend/entities"
	"Label-Scanner-Backend/internal/testutil"
	"Label-Scanner-Backend/pkg/labeltext"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScanRow(text, barcode string, complete bool) *entities.LabelScan {
	s := &entities.LabelScan{
		OcrHash: labeltext.Fingerprint(text),
		Name:    "Choco Bar",
		OcrText: text,
		Source:  domain.SourceUserScan,
	}
	if barcode != "" {
		s.Barcode = &barcode
	}
	if complete {
		score := 3
		s.HealthScore = &score
		s.ImageURL = "https://labels.s3.ap-south-1.amazonaws.com/products/1.png"
		s.Ingredients = []string{"Cocoa", "Sugar"}
		s.HarmfulIngredients = []domain.HarmfulIngredient{{Name: "Sugar", RiskLevel: domain.RiskHigh, Reason: "Added sugar."}}
	}
	return s
}

func TestScanRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), 0)

	row := newScanRow("Ingredients: cocoa, sugar", "8901234567890", true)
	require.NoError(t, repo.Create(ctx, row))
	require.NotEqual(t, uuid.Nil, row.ID)

	byID, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Cocoa", "Sugar"}, []string(byID.Ingredients))
	require.Len(t, byID.HarmfulIngredients, 1)
	assert.Equal(t, domain.RiskHigh, byID.HarmfulIngredients[0].RiskLevel)

	byFingerprint, err := repo.FindByFingerprint(ctx, labeltext.Fingerprint("INGREDIENTS: COCOA, SUGAR "))
	require.NoError(t, err)
	assert.Equal(t, row.ID, byFingerprint.ID)

	byBarcode, err := repo.FindByBarcode(ctx, "8901234567890")
	require.NoError(t, err)
	assert.Equal(t, row.ID, byBarcode.ID)
}

func TestScanRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), 0)

	_, err := repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrScanNotFound)

	_, err = repo.FindByFingerprint(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)

	_, err = repo.FindByBarcode(ctx, "")
	assert.ErrorIs(t, err, domain.ErrScanNotFound)
}

func TestScanRepository_DuplicateIsConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), 0)

	require.NoError(t, repo.Create(ctx, newScanRow("contains milk", "", true)))

	err := repo.Create(ctx, newScanRow("Contains Milk", "", true))
	assert.ErrorIs(t, err, domain.ErrScanConflict)

	require.NoError(t, repo.Create(ctx, newScanRow("contains nuts", "111", true)))
	err = repo.Create(ctx, newScanRow("contains soy", "111", true))
	assert.ErrorIs(t, err, domain.ErrScanConflict)
}

func TestScanRepository_EmptyBarcodesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), 0)

	empty := ""
	first := newScanRow("contains salt", "", true)
	first.Barcode = &empty
	require.NoError(t, repo.Create(ctx, first))
	assert.Nil(t, first.Barcode)

	second := newScanRow("contains pepper", "", true)
	second.Barcode = &empty
	require.NoError(t, repo.Create(ctx, second))
}

func TestScanRepository_UpdateIsPartial(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), 0)

	row := newScanRow("contains wheat", "", false)
	row.Recommendation = "keep me"
	require.NoError(t, repo.Create(ctx, row))

	url := "https://labels.s3.ap-south-1.amazonaws.com/products/9.png"
	require.NoError(t, repo.Update(ctx, row.ID, ScanUpdate{ImageURL: &url}))

	got, err := repo.FindByID(ctx, row.ID)
	require.NoError(t, err)
	assert.Equal(t, url, got.ImageURL)
	assert.Equal(t, "keep me", got.Recommendation)
	assert.Nil(t, got.HealthScore)

	assert.True(t, ScanUpdate{}.IsEmpty())
	assert.NoError(t, repo.Update(ctx, row.ID, ScanUpdate{}))
	assert.ErrorIs(t, repo.Update(ctx, uuid.New(), ScanUpdate{ImageURL: &url}), domain.ErrScanNotFound)
}

func TestScanRepository_MemoEvictedOnUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewScanRepository(testutil.DB(t), time.Minute)

	row := newScanRow("contains oats", "222", true)
	require.NoError(t, repo.Create(ctx, row))

	_, err := repo.FindByFingerprint(ctx, row.OcrHash)
	require.NoError(t, err)

	note := "updated"
	require.NoError(t, repo.Update(ctx, row.ID, ScanUpdate{SummaryNote: &note}))

	got, err := repo.FindByFingerprint(ctx, row.OcrHash)
	require.NoError(t, err)
	assert.Equal(t, "updated", got.SummaryNote)

	got, err = repo.FindByBarcode(ctx, "222")
	require.NoError(t, err)
	assert.Equal(t, "updated", got.SummaryNote)
}
