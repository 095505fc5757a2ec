// Copyright 2025 OpenOptics Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

const apiSample = `
# The address to expose the management API on (host:port or ip:port or :port).
# If not set, the API is disabled. (default "")
addr = ""
`

const switchSample = `
# Identifier of the ToR switch. (default 0)
tor_id = 0
# Port that redirected packets are sent to. A port outside [0, nb_ports)
# means the capture file stands in for it. (default 511)
drop_port = 511
# Number of egress ports. (default 16)
nb_ports = 16
# Number of priority queues per port, 0 being the highest priority. (default 1)
priority_queues = 1
# Capacity of every priority queue in packets. (default 64)
queue_capacity = 64
# Number of calendar time slices. (default 1)
nb_time_slices = 1
# Duration of one time slice in milliseconds. Only used in TIME_BASED mode.
# (default 128)
time_slice_duration_ms = 128
# Calendar mode, 0 for TIME_BASED, 1 for CONTROL_BASED. (default 0)
calendar_queue_mode = 0
`

const underlaySample = `
# The address ingress packets are received on. Every UDP datagram carries one
# IPv4 packet. If not set, the data plane is disabled. (default "")
listen = ""
# Socket buffer sizes in bytes. Zero keeps the system default. (default 0)
send_buffer_size = 0
receive_buffer_size = 0
# Number of datagrams read per batch. (default 64)
batch_size = 64
# The UDP peer attached to each egress port.
peers = [
    { port = 0, address = "127.0.0.1:31000" },
]
# Destination networks per egress port, as a comma separated prefix list.
# If empty, port n serves 10.0.n.0/24.
routes = [
    { port = 0, networks = "10.0.0.0/24" },
]
`

const captureSample = `
# The pcap file redirected packets are written to when the drop port is not
# one of the switch ports. If not set, nothing is captured. (default "")
path = ""
# Maximum number of bytes stored per packet. (default 65535)
snap_len = 65535
`
