package cache

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	s := NewCacheService(nil, time.Hour)
	id := uuid.MustParse("7f9c24e8-3b12-4fef-91e0-3f2c6a7d1a11")

	assert.Equal(t, "user:id:7f9c24e8-3b12-4fef-91e0-3f2c6a7d1a11", s.GenerateKey("user", "id", id))
	assert.Equal(t, "kb:provisioned:wyse_agent_abc", s.GenerateKey("kb", "provisioned", "wyse_agent_abc"))
}
