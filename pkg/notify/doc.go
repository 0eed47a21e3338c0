// Package notify distributes change events to interested listeners,
// chiefly the websocket relay that pushes them to connected UIs.
//
// # Channels
//
// Every mutation publishes one event on the channel of the resource it
// touched:
//
//	servers        server created / updated / deleted / locked / unlocked
//	domains        domain created / updated / deleted / locked / unlocked
//	assignments    domain assigned to or unassigned from a server
//	server_groups  group created / updated / deleted, membership changes
//	locks          lock acquired or released
//
// Bulk operations publish one event per affected resource, not one per
// call, so listeners can track state without refetching.
//
// # Delivery
//
// Publishing is fire and forget. A failed or dropped delivery is
// logged and counted but never surfaces to the caller: the record
// store is the source of truth and listeners resynchronize from it, so
// losing an event costs staleness, not correctness.
//
// # Backends
//
//	Broker         in-process fan-out, for single-node deployments
//	RedisNotifier  Redis pub/sub across processes
//	NATSNotifier   core NATS subjects under paddock.events.*
//
// All three implement Notifier. Components that only emit events take
// the narrower Publisher.
//
// # Usage
//
//	broker := notify.NewBroker()
//	broker.Start()
//	defer broker.Stop()
//
//	sub, _ := broker.Subscribe(ctx, notify.ChannelAssignments)
//	defer sub.Close()
//
//	broker.Publish(ctx, notify.ChannelAssignments, notify.Event{
//		Action:     notify.ActionAssigned,
//		DomainID:   dom.ID,
//		DomainName: dom.Name,
//		ServerID:   srv.ID,
//		ServerName: srv.Name,
//		User:       "alice",
//	})
//
//	msg := <-sub.Messages()
package notify
