//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package membudget

import "golang.org/x/sys/unix"

// ramSysctls lists the byte-valued physical memory sysctls, in order of
// preference. darwin has hw.memsize, the BSDs hw.physmem and hw.realmem.
var ramSysctls = []string{"hw.memsize", "hw.physmem", "hw.realmem"}

func systemRAM() (uint64, bool) {
	for _, name := range ramSysctls {
		if mem, err := unix.SysctlUint64(name); err == nil && mem > 0 {
			return mem, true
		}
	}
	return 0, false
}
