// File: dpdk/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package dpdk is the runtime's external collaborator boundary: it wraps the
// poll-mode-driver EAL (DPDK's Environment Abstraction Layer), exposing core
// enumeration, per-socket mempools, and per-core NIC queues as plain Go
// types. Two backends implement the same surface:
//
//   - build tag "dpdk": a real binding against github.com/yerden/go-dpdk,
//     requiring a DPDK toolchain and hugepages at runtime.
//   - default (no "dpdk" tag): a pure-Go simulation sufficient to exercise
//     every invariant in the runtime package without real hardware.
//
// Callers only ever see the exported interfaces and structs in this
// package; neither backend leaks into the runtime package's API.
package dpdk
