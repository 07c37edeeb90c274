package archive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObjectPath(t *testing.T) {
	at := time.Date(2024, 2, 9, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	assert.Equal(t, "deleted-users/2024/02/10/u-1.json", ObjectPath("u-1", at))
}

func TestArchiveRequiresBucket(t *testing.T) {
	_, err := NewDeletedUserArchive(nil, "").Archive(context.Background(), "u-1", time.Now(), map[string]string{})
	assert.Error(t, err)
}
