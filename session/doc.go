// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package session runs the wine classifier inside a fixed-size arena.
//
// A Session pairs one serialized model graph, one kernel set and one arena.
// It is created with New, prepared once with Initialize and then used for any
// number of forward passes:
//
//	s := session.New(wine.Model())
//	if err := s.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	scores, err := s.Infer(features)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(scores.ArgMax())
//
// # Memory
//
// All tensors, weights included, live in the session's arena (16 KiB by
// default, 16-byte aligned). Initialize plans the arena once; Infer copies 13
// values in, runs the graph and copies 3 values out without allocating.
//
// # Errors
//
// Every failure wraps one of the sentinel errors in this package, so callers
// can branch with errors.Is. StatusCode maps an error onto the numeric codes
// used by embedded hosts:
//
//	 0  success
//	-1  model load failure / session not initialized
//	-2  tensor allocation failure / invocation failure
//	-3  tensor resolution failure / invalid input size
//	-4  already initialized
//	-5  session closed
//
// # Concurrency
//
// A Session is not safe for concurrent use. Hosts that serve concurrent
// callers must serialize access.
package session
