package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/totegamma/metacatalog/internal/domain"
)

func TestApplySettings(t *testing.T) {
	base := domain.Settings{
		AutofixingEnabled:        true,
		ImportRestrictionSchemas: []string{"iso19139"},
		ServerPort:               "8080",
		Values:                   map[string]string{"system/site/name": "Base"},
	}

	s := ApplySettings(base, map[string]string{
		SettingAutofixing:         "false",
		SettingReferencedDeletion: "true",
		SettingImportRestrict:     "iso19139, dublin-core,",
		SettingServerPort:         "80",
		"system/feedback/email":   "root@localhost",
	})

	assert.False(t, s.AutofixingEnabled)
	assert.True(t, s.AllowReferencedDeletion)
	assert.Equal(t, []string{"iso19139", "dublin-core"}, s.ImportRestrictionSchemas)
	assert.Equal(t, "80", s.ServerPort)
	assert.Equal(t, "Base", s.Values["system/site/name"])
	assert.Equal(t, "root@localhost", s.Values["system/feedback/email"])

	assert.True(t, base.AutofixingEnabled, "base must not change")
	assert.Len(t, base.Values, 1, "base values must not change")
}

func TestApplySettingsIgnoresGarbage(t *testing.T) {
	base := domain.Settings{AutofixingEnabled: true}
	s := ApplySettings(base, map[string]string{SettingAutofixing: "maybe"})
	assert.True(t, s.AutofixingEnabled)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
