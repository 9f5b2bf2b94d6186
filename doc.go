// Package wadp and its sub-packages implement a wallet adapter service: the connection lifecycle of dapp clients
// logging in with a social login provider and getting a blockchain provider backed by the key of their session.
/*
wadp provides you with two microservices:

1) a wallet microservice (package wallet) that owns one adapter (package adapter) per configured client id and
 implements a RESTful API to initialize, connect, disconnect and query them.

2) a listener microservice (package listener) that records the lifecycle events of the adapters published by the
 wallet services.

Adapter

An adapter moves between the statuses NOT_READY, READY, CONNECTING and CONNECTED. Init builds its
authentication client (package lib/auth) and, with autoConnect and a cached session key, connects straight away.
Connect logs the user in and sets up the chain provider (package lib/provider) of the chain namespace configured:
eip155 chains get an ethereum provider, solana chains a solana one and other namespaces a provider holding the raw key.
Every transition, and every failed connection, is notified to the listeners registered on the adapter.

Architecture

The wallet publishes adapter events to a message broker (package lib/msg), implemented as a product agnostic layer
and configured via a JSON config file at service startup. Listener services consume them and persist them in a
database (package lib/store) that also keeps the login sessions, so that a restarted wallet resumes the connections
of its clients.

Sessions are issued by a local authority (package lib/auth/local) deriving a key per user from a hierarchical
deterministic wallet. Session keys are sealed before they are stored and id tokens are signed with the key of the
authority.

The microservices can also be monitored via a Prometheus API by setting the flag "-m" at startup.
*/
package wadp
