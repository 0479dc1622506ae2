package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyLayout(t *testing.T) {
	cfg := &Config{}
	at := time.Date(2026, time.March, 7, 12, 0, 0, 0, time.UTC)

	key := cfg.ObjectKey(42, "0f8fad5b-d9cb-469f-a165-70867728950e", ".pdf", at)
	assert.Equal(t, "documents/42/2026/03/0f8fad5b-d9cb-469f-a165-70867728950e.pdf", key)

	thumb := cfg.ThumbnailKey(42, "0f8fad5b-d9cb-469f-a165-70867728950e", at)
	assert.Equal(t, "documents/42/2026/03/thumbs/0f8fad5b-d9cb-469f-a165-70867728950e.jpg", thumb)
}

func TestObjectKeyWithoutExtension(t *testing.T) {
	cfg := &Config{}
	at := time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC)

	key := cfg.ObjectKey(7, "abc", "", at)
	assert.Equal(t, "documents/7/2026/12/abc", key)
}
