package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/agrivoice/internal/message"
)

func TestAppendAndEntries(t *testing.T) {
	l := New(10, 0)
	l.Append("tab-1", message.RoleUser, "pyaz ka bhav")
	l.Append("tab-1", message.RoleAI, "onion ki keemat 20/kg se 25/kg tak badhegi.")
	l.Append("tab-2", message.RoleUser, "hello")

	got := l.Entries("tab-1")
	require.Len(t, got, 2)
	assert.Equal(t, message.RoleUser, got[0].Role)
	assert.Equal(t, message.RoleAI, got[1].Role)
	assert.Len(t, l.Entries("tab-2"), 1)
	assert.Empty(t, l.Entries("nobody"))
}

func TestBounded(t *testing.T) {
	l := New(3, 0)
	for i := range 5 {
		l.Append("c", message.RoleUser, fmt.Sprint(i))
	}
	got := l.Entries("c")
	require.Len(t, got, 3)
	assert.Equal(t, "2", got[0].Text)
	assert.Equal(t, "4", got[2].Text)
}

func TestEntriesIsACopy(t *testing.T) {
	l := New(3, 0)
	l.Append("c", message.RoleUser, "a")
	got := l.Entries("c")
	got[0].Text = "changed"
	assert.Equal(t, "a", l.Entries("c")[0].Text)
}

func TestClientsBounded(t *testing.T) {
	l := New(5, 2)
	l.Append("a", message.RoleUser, "1")
	l.Append("b", message.RoleUser, "2")
	l.Append("a", message.RoleAI, "3") // a is now the most recent
	l.Append("c", message.RoleUser, "4")

	assert.Equal(t, 2, l.Clients())
	assert.Empty(t, l.Entries("b"), "least recently active client is dropped")
	assert.Len(t, l.Entries("a"), 2)
	assert.Len(t, l.Entries("c"), 1)

	for i := range 100 {
		l.Append(fmt.Sprintf("spoofed-%d", i), message.RoleUser, "x")
	}
	assert.Equal(t, 2, l.Clients())
}
