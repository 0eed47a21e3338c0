/*
Package config loads daemon configuration from YAML and the environment.

Precedence, lowest to highest: built-in defaults, the config file,
PADDOCK_* environment variables. Keys map to env vars by upcasing and
replacing dots, so lock.backend becomes PADDOCK_LOCK_BACKEND.

With no file and no environment the defaults stand alone: bbolt under
/var/lib/paddock, in-process lock table and event broker, HTTP on :8080.
Redis and NATS settings only matter when a backend selects them.

	paddock serve --config /etc/paddock/paddock.yaml

	data_dir: /var/lib/paddock
	listen: ":8080"
	log:
	  level: info
	  json: true
	lock:
	  backend: redis
	  ttl: 5m
	notify:
	  backend: redis
	redis:
	  addr: localhost:6379
*/
package config
