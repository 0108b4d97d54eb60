// Package reaktor builds non-blocking network services out of small
// composable stages called reactors.
//
// A Reactor receives a Reaction (a payload, an unconsumed readiness event,
// or Continue) and answers with one. Stages compose statically: Chain
// pipes values from one stage into the next and Map transforms them in
// flight, while And offers each event to two evented subtrees and merges
// their outputs into an Either. A System owns the readiness multiplexer
// and the token table; Start dispatches every wake-up into the root of a
// reactor tree and drains the values the tree produces.
//
// Everything inside one System runs on a single goroutine, so stages keep
// per-connection state in a Sessions table without locking. Other
// goroutines talk to a loop exclusively through SignalSender handles;
// Broadcast and Fanout distribute values across many receivers or many
// loops.
//
// The multiplexer is epoll; Linux is the supported platform. Other unix
// systems compile against a stub poller that fails at open, which keeps the
// pure stages and their tests usable there.
package reaktor
