// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package client is a reconnecting Go client for the OpenFloor realtime
endpoint.

# Lifecycle

The client moves through four states: Disconnected, Connecting,
Connected, and Lost. A transport failure moves it to Lost and starts a
reconnect loop (base wait 1s, growing by half each attempt, five
attempts); each attempt passes through Connecting, and success
restores the previous room and every notification subscription.
Exhausting the attempts leaves the client at Lost until a new Connect
or a Close. Close is final and never reconnects.

# Usage

	cl := client.New("ws://localhost:3419/ws", token)
	cl.On("new_argument", func(data json.RawMessage) { ... })
	cl.OnStateChange(func(s client.State) { ... })
	if err := cl.Connect(); err != nil {
		...
	}
	cl.Join("debate-id")
	cl.Vote("debate-id", "argument-id", 1)

# Typing

Typing is edge-triggered: call Typing on every keystroke and the
client emits a single typing_start, then a typing_end once input has
been idle for two seconds or StopTyping is called explicitly. The
server additionally expires stale flags on its own.
*/
package client
