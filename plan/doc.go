// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package plan replays a scripted sequence of ballot adjustments through the
quadratic allocator. It is the engine behind the "quadvote plan" command
and is handy for checking how far a budget stretches before opening an
election.

A plan is a YAML document:

	credits: 25
	choices: [mountains, beach, city]
	steps:
	  - choice: mountains
	    direction: increase
	  - choice: beach
	    votes: 3
	  - choice: city
	    direction: decrease

Each step either nudges a choice by one vote (direction) or sets its vote
count outright (votes). Steps that the allocator rejects are recorded in the
Report with their reason and the run carries on with the ballot unchanged.
*/
package plan
