package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/docmatch/internal/app"
	"github.com/MrJamesThe3rd/docmatch/internal/config"
	"github.com/MrJamesThe3rd/docmatch/internal/document"
	"github.com/MrJamesThe3rd/docmatch/internal/itempairing"
	"github.com/MrJamesThe3rd/docmatch/internal/pairing"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	t.Setenv("DISABLE_MODELS", "true")

	cfg, err := config.Load()
	require.NoError(t, err)

	return cfg
}

func TestEngine_ModelsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Matching.UseReferenceLogic = false

	engine, closer, err := app.Engine(cfg)
	require.NoError(t, err)
	require.NoError(t, closer())

	assert.True(t, engine.Options.UseReferenceLogic)
	assert.Equal(t, pairing.DefaultThreshold, engine.Options.Threshold)

	_, err = engine.Items.PairItems(context.Background(),
		[]document.Item{{Kind: document.KindInvoice}},
		[]document.Item{{Kind: document.KindPurchaseOrder}},
	)
	assert.ErrorIs(t, err, itempairing.ErrComparisonUnavailable)
}

func TestEngine_ScoringModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.Disabled = false
	cfg.Models.ScoringModelPath = filepath.Join(t.TempDir(), "model.json")

	require.NoError(t, os.WriteFile(cfg.Models.ScoringModelPath, []byte(`{"weights": [1, 2], "intercept": 0}`), 0o600))

	engine, closer, err := app.Engine(cfg)
	require.NoError(t, err)
	require.NoError(t, closer())

	assert.Equal(t, cfg.Matching.UseReferenceLogic, engine.Options.UseReferenceLogic)
	assert.NotNil(t, engine.Predictor)
}

func TestEngine_MissingModel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Models.Disabled = false
	cfg.Models.ScoringModelPath = filepath.Join(t.TempDir(), "missing.json")

	_, _, err := app.Engine(cfg)
	assert.Error(t, err)
}
