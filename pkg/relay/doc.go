// Package relay bridges the event stream onto websockets.
//
// The relay subscribes to every notification channel and pushes each
// event to all connected clients as {"channel": ..., "data": ...}.
// There is no per-client filtering; subscribe requests are acknowledged
// so existing clients keep working, but everyone sees everything.
//
// Clients may also speak a small inbound protocol: ping/pong for
// liveness, and lock_acquired/lock_released announcements that the
// relay echoes to all clients on the locks channel.
package relay
