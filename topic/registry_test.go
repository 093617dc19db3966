package topic_test

import (
	"testing"

	"github.com/horus-robotics/horus/topic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachCreatesOnFirstCall(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)

	region, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), region.Capacity())

	require.NoError(t, reg.Detach("cam", topic.KindHub))
}

func TestSecondAttachSharesRegion(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)

	r1, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	r2, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	assert.Same(t, r1, r2)

	require.NoError(t, reg.Detach("cam", topic.KindHub))
	require.NoError(t, reg.Detach("cam", topic.KindHub))
}

func TestHubAndLinkAreDistinctRegions(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)

	hub, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	link, err := reg.Attach("cam", topic.KindLink, 16, 32)
	require.NoError(t, err)
	assert.NotEqual(t, hub.Path(), link.Path())

	reg.Detach("cam", topic.KindHub)
	reg.Detach("cam", topic.KindLink)
}

func TestAttachRejectsInvalidTopicName(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)
	_, err := reg.Attach("bad/name", topic.KindHub, 16, 32)
	assert.Error(t, err)
}

func TestAttachRejectsShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)
	_, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	_, err = reg.Attach("cam", topic.KindHub, 32, 32)
	assert.Error(t, err)
}

func TestDetachUnknownReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)
	err := reg.Detach("never-attached", topic.KindHub)
	assert.Error(t, err)
}

func TestRemoveUnlinksBackingFile(t *testing.T) {
	dir := t.TempDir()
	reg := topic.New(dir)
	_, err := reg.Attach("cam", topic.KindHub, 16, 32)
	require.NoError(t, err)
	require.NoError(t, reg.Remove("cam", topic.KindHub))

	err = reg.Detach("cam", topic.KindHub)
	assert.Error(t, err, "detach after remove should find nothing locally attached")
}
