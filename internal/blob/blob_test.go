package blob

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veridianhq/veridian/internal/apperr"
)

func TestNewKey(t *testing.T) {
	orgID := uuid.New()

	t.Run("NamespacedUnderOrg", func(t *testing.T) {
		key := NewKey(orgID, "scan-report.pdf")
		assert.True(t, strings.HasPrefix(key, orgID.String()+"/"))
		assert.True(t, strings.HasSuffix(key, ".pdf"))
		assert.NotContains(t, key, "scan-report")
	})

	t.Run("KeysAreUnique", func(t *testing.T) {
		assert.NotEqual(t, NewKey(orgID, "a.png"), NewKey(orgID, "a.png"))
	})

	t.Run("TraversalFilenameLosesPath", func(t *testing.T) {
		key := NewKey(orgID, "../../etc/passwd")
		require.NoError(t, VerifyNamespace(orgID, key))
		assert.NotContains(t, key, "..")
		assert.NotContains(t, key, "etc")
	})

	t.Run("OversizedExtensionDropped", func(t *testing.T) {
		key := NewKey(orgID, "report."+strings.Repeat("x", 40))
		require.NoError(t, VerifyNamespace(orgID, key))
		assert.NotContains(t, key, "xxx")
	})
}

func TestVerifyNamespace(t *testing.T) {
	orgID := uuid.New()
	otherOrg := uuid.New()

	t.Run("Valid", func(t *testing.T) {
		assert.NoError(t, VerifyNamespace(orgID, orgID.String()+"/"+uuid.New().String()+".pdf"))
	})

	t.Run("ForeignNamespace", func(t *testing.T) {
		err := VerifyNamespace(orgID, otherOrg.String()+"/"+uuid.New().String())
		assert.True(t, errors.Is(err, apperr.ErrPathSecurity))
	})

	t.Run("NestedPath", func(t *testing.T) {
		err := VerifyNamespace(orgID, orgID.String()+"/sub/file.pdf")
		assert.True(t, errors.Is(err, apperr.ErrPathSecurity))
	})

	t.Run("Traversal", func(t *testing.T) {
		err := VerifyNamespace(orgID, orgID.String()+"/..")
		assert.True(t, errors.Is(err, apperr.ErrPathSecurity))
	})

	t.Run("BareNamespace", func(t *testing.T) {
		err := VerifyNamespace(orgID, orgID.String()+"/")
		assert.True(t, errors.Is(err, apperr.ErrPathSecurity))
	})

	t.Run("NoNamespace", func(t *testing.T) {
		err := VerifyNamespace(orgID, "file.pdf")
		assert.True(t, errors.Is(err, apperr.ErrPathSecurity))
	})
}
