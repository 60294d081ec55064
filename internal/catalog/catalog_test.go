package catalog

import (
	"testing"

	"docvault/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticCatalog_Definition(t *testing.T) {
	c := NewStatic()

	folder, err := c.Definition("folder")
	require.NoError(t, err)
	assert.Equal(t, model.KindFolder, folder.Kind)

	doc, err := c.Definition("document")
	require.NoError(t, err)
	assert.Equal(t, model.KindDocument, doc.Kind)

	_, err = c.Definition("nonsense")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestTypeDefinition_Property(t *testing.T) {
	c := NewStatic()
	doc, err := c.Definition("document")
	require.NoError(t, err)

	name, ok := doc.Property(model.PropertyName)
	require.True(t, ok)
	assert.True(t, name.Required)
	assert.Equal(t, UpdatabilityOnCreate, name.Updatability)

	ct, ok := doc.Property(model.PropertyContentType)
	require.True(t, ok)
	assert.Equal(t, UpdatabilityReadOnly, ct.Updatability)

	_, ok = doc.Property("unknown")
	assert.False(t, ok)
}
