package insight

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediclin/platform/internal/measurement"
	"github.com/mediclin/platform/internal/patient"
	"github.com/mediclin/platform/internal/scoring"
	"github.com/mediclin/platform/internal/shared/config"
	"github.com/mediclin/platform/internal/shared/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	db, err := database.New(ctx, config.DatabaseConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		BusyTimeoutMS: 5000,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(ctx, db.SQL))
	return db
}

// TestRunRoundTripPreservesOrder persists a real engine run and checks that
// reading it back keeps the category order of insights and the ranking of
// predictions, independent of the random row IDs.
func TestRunRoundTripPreservesOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	patients := patient.NewRepository(db.SQL)
	repo := NewRepository(db.SQL)

	p, err := patient.NewPatient("Ana Petrović", 45, patient.SexMale, "")
	require.NoError(t, err)
	require.NoError(t, patients.Save(ctx, p))

	report := scoring.NewEngine().Analyze(scoring.Snapshot{
		Age: p.Age,
		Sex: p.Sex,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP:  140,
			measurement.KindDiastolicBP: 90,
			measurement.KindGlucose:     110,
		},
	})
	require.True(t, report.Valid())

	run := NewRun(p.ID, report)
	require.NoError(t, repo.SaveRun(ctx, run))

	loaded, err := repo.LatestRun(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, run.RunID, loaded.RunID)

	require.Len(t, loaded.Insights, len(scoring.Kinds))
	for i, kind := range scoring.Kinds {
		assert.Equal(t, kind, loaded.Insights[i].Kind, "insight %d out of category order", i)
	}

	require.Len(t, loaded.Predictions, len(run.Predictions))
	for i, want := range run.Predictions {
		assert.Equal(t, want.Condition, loaded.Predictions[i].Condition, "prediction %d out of rank order", i)
		assert.Equal(t, want.Confidence, loaded.Predictions[i].Confidence)
	}

	history, err := repo.ListByPatient(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, history, len(scoring.Kinds))
	for i, kind := range scoring.Kinds {
		assert.Equal(t, kind, history[i].Kind, "history row %d out of category order", i)
	}
}

// TestLatestRunPicksNewestRun persists two runs and checks the newest wins
func TestLatestRunPicksNewestRun(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	patients := patient.NewRepository(db.SQL)
	repo := NewRepository(db.SQL)

	p, err := patient.NewPatient("Marko Jović", 67, patient.SexMale, "")
	require.NoError(t, err)
	require.NoError(t, patients.Save(ctx, p))

	engine := scoring.NewEngine()

	first := NewRun(p.ID, engine.Analyze(scoring.Snapshot{Age: p.Age, Sex: p.Sex}))
	require.NoError(t, repo.SaveRun(ctx, first))

	second := NewRun(p.ID, engine.Analyze(scoring.Snapshot{
		Age: p.Age,
		Sex: p.Sex,
		Measurements: map[measurement.Kind]float64{
			measurement.KindSystolicBP: 185,
		},
	}))
	// Same-run rows share one timestamp; make the second run strictly newer.
	second.GeneratedAt = first.GeneratedAt.Add(time.Second)
	for i := range second.Insights {
		second.Insights[i].GeneratedAt = second.GeneratedAt
	}
	for i := range second.Predictions {
		second.Predictions[i].GeneratedAt = second.GeneratedAt
	}
	require.NoError(t, repo.SaveRun(ctx, second))

	loaded, err := repo.LatestRun(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, second.RunID, loaded.RunID)

	// Earlier runs are superseded, not overwritten.
	history, err := repo.ListByPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2*len(scoring.Kinds))
}
