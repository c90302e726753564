package events

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/nothinglink/earctl/pkg/session"
)

const (
	keySession = "earctl:session"
	keyBattery = "earctl:battery"
)

// Publisher mirrors session lifecycle and read results onto Redis: one
// hash field per value (lifecycle state as a plain string, battery and
// model values CBOR-encoded), with a pubsub notification on every write
// so other processes can react without polling.
type Publisher struct {
	redis *redisClient
}

// NewPublisher connects to addr and returns a Publisher. db selects
// the Redis logical database; password may be empty.
func NewPublisher(addr, password string, db int) (*Publisher, error) {
	client, err := newRedisClient(addr, password, db)
	if err != nil {
		return nil, err
	}
	return &Publisher{redis: client}, nil
}

// Close releases the underlying Redis connection.
func (p *Publisher) Close() error { return p.redis.close() }

func (p *Publisher) publishCBOR(key, field string, value interface{}) error {
	encoded, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("events: encode %s/%s: %w", key, field, err)
	}
	return p.redis.writeAndPublishBytes(key, field, encoded)
}

// PublishConnected announces a newly established session.
func (p *Publisher) PublishConnected(info session.Info) error {
	return p.redis.writeAndPublishString(keySession, "state", fmt.Sprintf("connected:%s", info.ID))
}

// PublishDisconnected announces that a session has ended.
func (p *Publisher) PublishDisconnected(id uuid.UUID) error {
	return p.redis.writeAndPublishString(keySession, "state", fmt.Sprintf("disconnected:%s", id))
}

// PublishBattery mirrors a battery read.
func (p *Publisher) PublishBattery(status session.BatteryStatus) error {
	return p.publishCBOR(keyBattery, "status", status)
}

// PublishModel mirrors a learned model descriptor.
func (p *Publisher) PublishModel(summary session.ModelSummary) error {
	return p.publishCBOR(keySession, "model", summary)
}
