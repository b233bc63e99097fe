package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMessages(t *testing.T) {
	input := `{"source_id":"1","sender":"ana@example.com","subject":"URGENT","body":"call me"}

{"subject":"Weekly newsletter"}
`
	msgs, err := readMessages(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "1", msgs[0].SourceID)
	assert.Equal(t, "call me", msgs[0].Body)
	assert.Equal(t, "Weekly newsletter", msgs[1].Subject)
	assert.Empty(t, msgs[1].SourceID)
}

func TestReadMessagesReportsLine(t *testing.T) {
	_, err := readMessages(strings.NewReader("{\"subject\":\"ok\"}\nnot json\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}
