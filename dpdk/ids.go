// File: dpdk/ids.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dpdk

import "fmt"

// CoreId identifies a logical CPU core known to the EAL.
type CoreId uint

// NewCoreId wraps a raw logical core index.
func NewCoreId(id uint) CoreId { return CoreId(id) }

// Raw returns the underlying logical core index.
func (c CoreId) Raw() uint { return uint(c) }

func (c CoreId) String() string { return fmt.Sprintf("core#%d", uint(c)) }

// SocketId identifies a NUMA node.
type SocketId uint

// NewSocketId wraps a raw NUMA node index.
func NewSocketId(id uint) SocketId { return SocketId(id) }

// Raw returns the underlying NUMA node index.
func (s SocketId) Raw() uint { return uint(s) }

func (s SocketId) String() string { return fmt.Sprintf("socket#%d", uint(s)) }
