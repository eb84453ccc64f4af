package reportcache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "report:client-42", Key("client-42"))
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "://nope", "", time.Minute, zerolog.Nop())
	assert.ErrorContains(t, err, "invalid redis URL")
}

func TestPublishSurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	c := New(client, time.Minute, zerolog.Nop())
	defer c.Close()

	err := c.Publish(context.Background(), "client-1", map[string]int{"alerts": 1})
	assert.ErrorContains(t, err, "redis SET report:client-1")

	_, err = c.Get(context.Background(), "client-1")
	assert.Error(t, err)
}

func TestPublishRejectsUnmarshalableReport(t *testing.T) {
	c := New(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), time.Minute, zerolog.Nop())
	defer c.Close()

	err := c.Publish(context.Background(), "client-1", map[string]any{"bad": make(chan int)})
	assert.ErrorContains(t, err, "marshal report")
}
