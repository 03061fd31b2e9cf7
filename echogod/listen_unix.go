//go:build unix

/**
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package echogod

import (
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// listenTCP opens a TCP listener with an explicit listen(2) backlog, which
// net.Listen does not expose.
func listenTCP(addr string, backlog int) (net.Listener, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	family := unix.AF_INET
	var sockaddr unix.Sockaddr
	if ip4 := tcpAddr.IP.To4(); tcpAddr.IP == nil || ip4 != nil {
		a4 := &unix.SockaddrInet4{Port: tcpAddr.Port}
		copy(a4.Addr[:], ip4)
		sockaddr = a4
	} else {
		family = unix.AF_INET6
		a6 := &unix.SockaddrInet6{Port: tcpAddr.Port}
		copy(a6.Addr[:], tcpAddr.IP.To16())
		sockaddr = a6
	}

	fd, err := unix.Socket(family, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setsockopt", err)
	}
	if err := unix.Bind(fd, sockaddr); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("bind", err)
	}
	if err := unix.Listen(fd, backlog); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("listen", err)
	}

	// FileListener dups the descriptor, so the file is closed either way.
	file := os.NewFile(uintptr(fd), "tcp:"+addr)
	defer file.Close()
	return net.FileListener(file)
}
