// File: runtime/ids.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package runtime

import "github.com/momentics/dpdkrt/dpdk"

// CoreId and SocketId are aliased from the dpdk package: the runtime never
// mints its own core/socket identity, it only assembles what the EAL reports.
type CoreId = dpdk.CoreId
type SocketId = dpdk.SocketId
