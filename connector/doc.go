// Package connector defines the four-operation capability contract that
// represents one model backend (generate, refusal probing, benchmark testing,
// abliteration) plus a rate-limited base for implementations and the closed
// set of built-in simulated variants.
//
// Each connector instance enforces its own minimum inter-call interval, so
// concurrently running connectors for different backends never contend with
// each other. Instances are owned 1:1 by their registry record and must not
// be shared across concurrently running workflow units.
//
// SDK-backed variants live in the openai and anthropic sub-packages.
package connector
