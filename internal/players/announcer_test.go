package players

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micro-nova/amplipi-hub/internal/amplipi"
)

func TestAnnouncerDefaults(t *testing.T) {
	client := newFakeClient(testStatus())
	player := NewAnnouncerPlayer(client, &fakeResolver{}, quietLogger())

	assert.Equal(t, "amplipi_announcement", player.UniqueID())
	assert.Equal(t, "media_player.amplipi_announcement", player.EntityID())
	assert.Equal(t, KindAnnouncer, player.Kind())
	assert.True(t, player.Available())
	assert.Equal(t, StateIdle, player.State())

	volume := player.VolumeLevel()
	require.NotNil(t, volume)
	assert.InDelta(t, 0.5, *volume, 0.001)
}

func TestAnnouncerPlayMedia(t *testing.T) {
	client := newFakeClient(testStatus())
	player := NewAnnouncerPlayer(client, &fakeResolver{}, quietLogger())
	ctx := context.Background()

	require.NoError(t, player.SetVolume(ctx, amplipi.Ptr(0.8)))
	require.NoError(t, player.PlayMedia(ctx, "http://example.com/dinner.mp3"))

	require.Len(t, client.announced, 1)
	announcement := client.announced[0]
	assert.Equal(t, "http://example.com/dinner.mp3", announcement.Media)
	require.NotNil(t, announcement.VolF)
	assert.InDelta(t, 0.8, *announcement.VolF, 0.001)
}

func TestAnnouncerStateIsFixed(t *testing.T) {
	client := newFakeClient(testStatus())
	player := NewAnnouncerPlayer(client, &fakeResolver{}, quietLogger())
	ctx := context.Background()

	require.NoError(t, player.PlayMedia(ctx, "http://example.com/dinner.mp3"))
	assert.Equal(t, StateIdle, player.State(), "announcements are fire-and-forget")

	require.NoError(t, player.Update(ctx))
	assert.Empty(t, player.SourceList())
}
