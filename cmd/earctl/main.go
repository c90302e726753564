package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nothinglink/earctl/pkg/events"
	"github.com/nothinglink/earctl/pkg/manager"
	"github.com/nothinglink/earctl/pkg/rfcomm"
)

// Configuration flags
var (
	devicePath = flag.String("device", "/dev/rfcomm0", "Bound RFCOMM device path")
	mac        = flag.String("mac", "", "Bluetooth MAC address of the earbud case")
	channel    = flag.Int("channel", 6, "RFCOMM channel number")
	timeout    = flag.Duration("timeout", 2*time.Second, "Per-request transaction timeout")
	redisAddr  = flag.String("redis-addr", "", "Redis server address (enables event mirroring when set)")
	redisPass  = flag.String("redis-pass", "", "Redis password")
	redisDB    = flag.Int("redis-db", 0, "Redis database number")
)

func main() {
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("Starting earctl")
	log.Printf("RFCOMM device: %s", *devicePath)
	log.Printf("MAC: %s channel: %d", *mac, *channel)

	mgr := manager.New()
	addr := rfcomm.Address{MAC: *mac, Channel: uint8(*channel)}

	s, err := mgr.Connect(*devicePath, addr)
	if err != nil {
		log.Fatalf("Failed to connect to %s: %v", addr, err)
	}
	defer mgr.Disconnect()
	s.SetTimeout(*timeout)
	log.Printf("Session established: %s", s.ID())

	var publisher *events.Publisher
	var watcher *events.CommandWatcher
	stopCh := make(chan struct{})

	if *redisAddr != "" {
		publisher, err = events.NewPublisher(*redisAddr, *redisPass, *redisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer publisher.Close()
		log.Printf("Connected to Redis at %s", *redisAddr)

		watcher, err = events.NewCommandWatcher(*redisAddr, *redisPass, *redisDB, mgr)
		if err != nil {
			log.Fatalf("Failed to start command watcher: %v", err)
		}
		defer watcher.Close()
		go watcher.Watch(stopCh)

		if err := publisher.PublishConnected(s.Info()); err != nil {
			log.Printf("Warning: failed to publish session connected: %v", err)
		}
	}

	log.Printf("Identifying device...")
	identity, err := s.DetectSerial()
	if err != nil {
		log.Printf("Warning: failed to detect serial: %v", err)
	} else {
		log.Printf("Detected serial %s, sku %s, model %s", identity.SerialNumber, identity.SKU, identity.ModelID)
		if publisher != nil {
			if model := s.Info().Model; model != nil {
				if err := publisher.PublishModel(*model); err != nil {
					log.Printf("Warning: failed to publish model: %v", err)
				}
			}
		}
	}

	s.InitDevice()

	if battery, err := s.ReadBattery(); err != nil {
		log.Printf("Warning: failed to read battery: %v", err)
	} else if publisher != nil {
		if err := publisher.PublishBattery(battery); err != nil {
			log.Printf("Warning: failed to publish battery: %v", err)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	close(stopCh)
	if publisher != nil {
		if err := publisher.PublishDisconnected(s.ID()); err != nil {
			log.Printf("Warning: failed to publish session disconnected: %v", err)
		}
	}
	log.Printf("Shutting down...")
}
