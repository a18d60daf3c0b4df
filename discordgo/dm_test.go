package discordgo

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Empty(t, DisplayName(nil))
	assert.Equal(t, "alice", DisplayName(&discordgo.User{Username: "alice"}))
	assert.Equal(t, "Alice N.", DisplayName(&discordgo.User{Username: "alice", GlobalName: "Alice N."}))
}
