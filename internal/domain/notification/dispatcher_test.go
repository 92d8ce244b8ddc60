package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_Dispatch(t *testing.T) {
	tests := []struct {
		name      string
		split     bool
		maxSize   int
		message   string
		failOn    map[int]bool
		wantTexts []string
		wantFails []int
	}{
		{
			name:      "thirteen characters at size ten",
			split:     true,
			maxSize:   10,
			message:   "abcdefghijklm",
			wantTexts: []string{"abcdefghij", "klm"},
		},
		{
			name:      "split enabled sends every chunk in order",
			split:     true,
			maxSize:   3,
			message:   "aaabbbccc",
			wantTexts: []string{"aaa", "bbb", "ccc"},
		},
		{
			name:      "split disabled sends only the first chunk",
			split:     false,
			maxSize:   3,
			message:   "aaabbbccc",
			wantTexts: []string{"aaa"},
		},
		{
			name:      "split disabled stops even when first chunk fails",
			split:     false,
			maxSize:   3,
			message:   "aaabbbccc",
			failOn:    map[int]bool{1: true},
			wantTexts: []string{"aaa"},
			wantFails: []int{1},
		},
		{
			name:      "failed chunk does not stop the rest",
			split:     true,
			maxSize:   3,
			message:   "aaabbbccc",
			failOn:    map[int]bool{1: true},
			wantTexts: []string{"aaa", "bbb", "ccc"},
			wantFails: []int{1},
		},
		{
			name:      "empty message still posts once",
			split:     true,
			maxSize:   10,
			message:   "",
			wantTexts: []string{""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &recordingTransport{failOn: tt.failOn}
			history := NewHistory(10)
			d := NewDispatcher(transport, history, nil)

			cfg := testConfig()
			cfg.SplitMessage = tt.split
			cfg.MaxMessageSize = tt.maxSize

			d.Dispatch(context.Background(), cfg, tt.message)

			assert.Equal(t, tt.wantTexts, transport.texts())

			failures, err := history.RecentFailures(context.Background(), 0)
			require.NoError(t, err)
			require.Len(t, failures, len(tt.wantFails))
			for i, f := range failures {
				assert.Equal(t, tt.wantFails[len(tt.wantFails)-1-i], f.Chunk)
				assert.Equal(t, 502, f.StatusCode)
				assert.Equal(t, cfg.ChatID, f.ChatID)
				assert.NotEmpty(t, f.ID)
			}
		})
	}
}

func TestDispatcher_PostRequestFields(t *testing.T) {
	transport := &recordingTransport{}
	d := NewDispatcher(transport, nil, nil)

	cfg := testConfig()
	cfg.ParseMode = "HTML"

	d.Run(context.Background(), DispatchTask{Config: cfg, Message: "<b>down</b>"})

	require.Len(t, transport.posts, 1)
	post := transport.posts[0]
	assert.Equal(t, "123:abc", post.Token)
	assert.Equal(t, "-1001", post.ChatID)
	assert.Equal(t, "<b>down</b>", post.Text)
	assert.Equal(t, "HTML", post.ParseMode)
	assert.Equal(t, cfg.Timeouts, post.Timeouts)
}
