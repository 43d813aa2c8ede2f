package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/todoboard/internal/model"
)

func TestFormFields_Apply(t *testing.T) {
	base := *model.DefaultAppConfig()

	cfg, err := formFields{
		baseURL:  " http://localhost:3000 ",
		timeout:  "5",
		userID:   "7",
		theme:    model.ThemeDark,
		pageSize: "25",
		refresh:  "60",
	}.apply(base)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000", cfg.API.BaseURL)
	assert.Equal(t, 5, cfg.API.TimeoutSec)
	assert.Equal(t, 7, cfg.API.UserID)
	assert.Equal(t, model.ThemeDark, cfg.Display.Theme)
	assert.Equal(t, 25, cfg.Display.PageSize)
	assert.Equal(t, 60, cfg.Display.RefreshIntervalSec)
	assert.Equal(t, base.Log, cfg.Log)
}

func TestFormFields_ApplyRejects(t *testing.T) {
	base := *model.DefaultAppConfig()
	ok := formFields{
		baseURL: base.API.BaseURL, timeout: "30", userID: "1",
		theme: model.ThemeLight, pageSize: "10", refresh: "0",
	}

	tests := map[string]func(f *formFields){
		"non-numeric page size": func(f *formFields) { f.pageSize = "ten" },
		"zero user":             func(f *formFields) { f.userID = "0" },
		"bad url":               func(f *formFields) { f.baseURL = "nope" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			f := ok
			mutate(&f)
			got, err := f.apply(base)
			assert.Error(t, err)
			assert.Equal(t, base, got)
		})
	}
}

func TestSave_WritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m := New(path, 80, 24)
	m.Start(*model.DefaultAppConfig())
	m.ff.pageSize = "4"

	msg, ok := m.save()().(SavedMsg)
	require.True(t, ok)
	require.NoError(t, msg.Err)
	assert.Equal(t, 4, msg.Config.Display.PageSize)

	loaded, err := model.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Display.PageSize)
}

func TestValidators(t *testing.T) {
	assert.NoError(t, validateURL("https://example.com"))
	assert.Error(t, validateURL("example.com"))
	assert.Error(t, validateURL(""))

	assert.NoError(t, validateNumber("Page size", 1)("3"))
	assert.Error(t, validateNumber("Page size", 1)("0"))
	assert.Error(t, validateNumber("Page size", 1)("x"))
}
