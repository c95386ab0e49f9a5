// Package offlinesync queues AgriOne marketplace actions while the device is
// offline and replays them against the API once connectivity returns.
//
// Actions (price alerts, dealer contacts, reviews, favorites) are persisted in
// FIFO order, retried up to three passes, and never run two passes at once.
//
// Key subpackages:
//
//	github.com/agrione/offline-sync/pkg/offline       - The queue service: enqueue, sync, remove, clear
//	github.com/agrione/offline-sync/pkg/queue         - Action variants, registry and wire format
//	github.com/agrione/offline-sync/pkg/worker        - Sync pass runner (retry ceiling, timeouts, tracing)
//	github.com/agrione/offline-sync/pkg/remote        - Delivery over HTTP or SQS
//	github.com/agrione/offline-sync/pkg/store         - Slot persistence (sqlite, mysql, postgres, redis, memcached)
//	github.com/agrione/offline-sync/pkg/connectivity  - Online/offline sources
//	github.com/agrione/offline-sync/pkg/schedule      - Cron kernel and distributed locks
//	github.com/agrione/offline-sync/pkg/web           - Local control API
//
// Example Usage:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/agrione/offline-sync/pkg/connectivity"
//		"github.com/agrione/offline-sync/pkg/offline"
//		"github.com/agrione/offline-sync/pkg/queue"
//		"github.com/agrione/offline-sync/pkg/remote"
//		"github.com/agrione/offline-sync/pkg/worker"
//	)
//
//	func main() {
//		registry := queue.NewRegistry()
//		sender := remote.NewHTTPSender("http://localhost:8000/api/v1", "", 0)
//		remote.NewDeliverer(sender, false).RegisterHandlers(registry)
//
//		net := connectivity.NewManual(false)
//		svc := offline.New(offline.Options{
//			Runner:       worker.NewRunner(registry, nil),
//			Connectivity: net,
//		})
//		_ = svc.Init(context.Background())
//		defer svc.Dispose()
//
//		svc.Enqueue(context.Background(), queue.SetPriceAlert{Commodity: "Maize", Threshold: 2500})
//		net.SetOnline(true) // replays the queued alert
//	}
package offlinesync
