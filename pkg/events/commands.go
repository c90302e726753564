package events

import (
	"log"
	"strings"
	"time"

	"github.com/nothinglink/earctl/pkg/manager"
	"github.com/nothinglink/earctl/pkg/session"
)

const keyCommandList = "earctl:commands"

// CommandWatcher drains operator commands off a Redis list and
// dispatches them to the active session. It never opens a session
// itself; if none is active when a command arrives, the command is
// logged and dropped.
type CommandWatcher struct {
	redis   *redisClient
	manager *manager.Manager
}

// NewCommandWatcher connects to addr and returns a CommandWatcher that
// dispatches onto mgr's active session.
func NewCommandWatcher(addr, password string, db int, mgr *manager.Manager) (*CommandWatcher, error) {
	client, err := newRedisClient(addr, password, db)
	if err != nil {
		return nil, err
	}
	return &CommandWatcher{redis: client, manager: mgr}, nil
}

// Close releases the underlying Redis connection.
func (w *CommandWatcher) Close() error { return w.redis.close() }

// Watch blocks, dispatching commands until stopCh is closed.
func (w *CommandWatcher) Watch(stopCh <-chan struct{}) {
	log.Printf("starting command watcher on list key %s", keyCommandList)
	for {
		select {
		case <-stopCh:
			log.Println("stopping command watcher")
			return
		default:
		}

		result, err := w.redis.brPop(1*time.Second, keyCommandList)
		if err != nil {
			log.Printf("error receiving command from %s: %v", keyCommandList, err)
			time.Sleep(1 * time.Second)
			continue
		}
		if result == nil {
			continue
		}

		command := result[1]
		if err := w.dispatch(command); err != nil {
			log.Printf("command %q failed: %v", command, err)
		}
	}
}

// dispatch maps a single command string onto a session call. Commands
// take the form "<verb>" or "<verb>:<arg>", e.g. "ring:left",
// "anc:nc-high", "latency:on".
func (w *CommandWatcher) dispatch(command string) error {
	s, err := w.manager.Session()
	if err != nil {
		return err
	}

	verb, arg, _ := strings.Cut(command, ":")
	switch verb {
	case "ring":
		side, err := parseSideOrStop(arg)
		if err != nil {
			return err
		}
		return s.RingBuds(arg != "stop", side)
	case "anc":
		level, err := parseAncArg(arg)
		if err != nil {
			return err
		}
		return s.SetANC(level)
	case "latency":
		return s.SetLatency(arg == "on")
	case "in-ear":
		return s.SetInEarDetection(arg == "on")
	default:
		log.Printf("unrecognized command verb %q", verb)
		return nil
	}
}

func parseSideOrStop(arg string) (session.EarSide, error) {
	if arg == "stop" {
		return session.SideLeft, nil
	}
	return session.ParseEarSide(arg)
}

func parseAncArg(arg string) (session.AncLevel, error) {
	return session.ParseAncLevel(arg)
}
