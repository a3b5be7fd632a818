// Package scheduler dispatches conversion jobs across a bounded number of
// workers.
//
// A single control loop owns all counters. It wakes on a fixed poll interval
// or when a worker reports completion, dispatches at most one job per
// iteration while capacity remains, and drives the progress reporter on a
// coarser interval. Workers never touch shared state; they send their
// outcome over a channel and the loop applies it.
//
// Pending jobs are sorted by ascending duration and consumed from the back,
// so the longest books start first.
package scheduler
