package services

import (
	"os"
	"path/filepath"
	"route-audit-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTranslator(t *testing.T) {
	tr := DefaultStatusTranslator()

	assert.Equal(t, "Damaged", tr.Translate("damaged"))
	assert.Equal(t, "Refused by buyer", tr.Translate("buyer_rejected"))
	assert.Equal(t, "some_new_code", tr.Translate("some_new_code"))
	assert.Equal(t, "", tr.Translate(""))

	assert.Equal(t, "pending", tr.TranslateReason(domain.NullReason))
	assert.Equal(t, "pending", tr.TranslateReason(domain.Reason("")))
	assert.Equal(t, "Address not visited", tr.TranslateReason(domain.Reason("unvisited_address")))
}

func TestStatusTranslatorOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statuses.yaml")
	require.NoError(t, os.WriteFile(path, []byte("damaged: Broken\npending: Not yet scanned\n"), 0o644))

	tr, err := NewStatusTranslator(path)
	require.NoError(t, err)

	assert.Equal(t, "Broken", tr.Translate("damaged"))
	assert.Equal(t, "Not yet scanned", tr.TranslateReason(domain.NullReason))
	assert.Equal(t, "Missing", tr.Translate("missing"))

	_, err = NewStatusTranslator(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
