// Package mount implements the mount-option vocabulary and the Entry
// type; the mount engine itself is package mountengine. Flag parsing here guarantees one property: parsing any
// subset of the recognized vocabulary and re-serializing to canonical
// form yields the same effective (flags, propagation, data) tuple
// regardless of input order.
package mount

import "golang.org/x/sys/unix"

// ExtFlag is the bitset of box-specific extension flags. Exactly one
// exists today: copy-symlink.
type ExtFlag uint32

const (
	ExtCopySymlink ExtFlag = 1 << iota
)

type flagOp struct {
	set   uintptr
	clear uintptr
}

// flagTable maps the standard mount-option vocabulary to the kernel
// MS_* bit each sets or clears. Options with no kernel bit
// of their own (e.g. "async", the absence of MS_SYNCHRONOUS) clear the
// bit their positive counterpart sets.
var flagTable = map[string]flagOp{
	"bind":          {set: unix.MS_BIND},
	"rbind":         {set: unix.MS_BIND | unix.MS_REC},
	"ro":            {set: unix.MS_RDONLY},
	"rw":            {clear: unix.MS_RDONLY},
	"nosuid":        {set: unix.MS_NOSUID},
	"suid":          {clear: unix.MS_NOSUID},
	"nodev":         {set: unix.MS_NODEV},
	"dev":           {clear: unix.MS_NODEV},
	"noexec":        {set: unix.MS_NOEXEC},
	"exec":          {clear: unix.MS_NOEXEC},
	"sync":          {set: unix.MS_SYNCHRONOUS},
	"async":         {clear: unix.MS_SYNCHRONOUS},
	"remount":       {set: unix.MS_REMOUNT},
	"relatime":      {set: unix.MS_RELATIME},
	"norelatime":    {clear: unix.MS_RELATIME},
	"noatime":       {set: unix.MS_NOATIME},
	"atime":         {clear: unix.MS_NOATIME},
	"nodiratime":    {set: unix.MS_NODIRATIME},
	"diratime":      {clear: unix.MS_NODIRATIME},
	"dirsync":       {set: unix.MS_DIRSYNC},
	"mand":          {set: unix.MS_MANDLOCK},
	"nomand":        {clear: unix.MS_MANDLOCK},
	"iversion":      {set: unix.MS_I_VERSION},
	"noiversion":    {clear: unix.MS_I_VERSION},
	"lazytime":      {set: unix.MS_LAZYTIME},
	"nolazytime":    {clear: unix.MS_LAZYTIME},
	"silent":        {set: unix.MS_SILENT},
	"loud":          {clear: unix.MS_SILENT},
	"strictatime":   {set: unix.MS_STRICTATIME},
	"nostrictatime": {clear: unix.MS_STRICTATIME},
	"nosymfollow":   {set: unix.MS_NOSYMFOLLOW},
	"symfollow":     {clear: unix.MS_NOSYMFOLLOW},
}

var propagationTable = map[string]flagOp{
	"rshared":     {set: unix.MS_SHARED | unix.MS_REC},
	"shared":      {set: unix.MS_SHARED},
	"rslave":      {set: unix.MS_SLAVE | unix.MS_REC},
	"slave":       {set: unix.MS_SLAVE},
	"rprivate":    {set: unix.MS_PRIVATE | unix.MS_REC},
	"private":     {set: unix.MS_PRIVATE},
	"runbindable": {set: unix.MS_UNBINDABLE | unix.MS_REC},
	"unbindable":  {set: unix.MS_UNBINDABLE},
}

// canonicalOrder fixes the serialization order for Serialize, so two
// option sets that are effectively equal always print identically.
var canonicalOrder = []string{
	"bind", "rbind", "ro", "rw", "nosuid", "suid", "nodev", "dev",
	"noexec", "exec", "sync", "async", "remount", "relatime", "norelatime",
	"noatime", "atime", "nodiratime", "diratime", "dirsync", "mand", "nomand",
	"iversion", "noiversion", "lazytime", "nolazytime", "silent", "loud",
	"strictatime", "nostrictatime", "nosymfollow", "symfollow",
}

var canonicalPropagationOrder = []string{
	"rshared", "shared", "rslave", "slave", "rprivate", "private", "runbindable", "unbindable",
}

// ParseOptions splits a mount options list into the kernel flag
// bitset, the propagation bitset, the extension-flag set, and the
// joined data string of whatever options did not match a known flag.
func ParseOptions(options []string) (flags uintptr, propagation uintptr, ext ExtFlag, data string) {
	var dataParts []string
	for _, opt := range options {
		if op, ok := flagTable[opt]; ok {
			flags = (flags | op.set) &^ op.clear
			continue
		}
		if op, ok := propagationTable[opt]; ok {
			propagation = (propagation | op.set) &^ op.clear
			continue
		}
		if opt == "copy-symlink" {
			ext |= ExtCopySymlink
			continue
		}
		dataParts = append(dataParts, opt)
	}
	return flags, propagation, ext, joinData(dataParts)
}

func joinData(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

// Serialize renders a (flags, propagation, ext) tuple back to a
// canonical option list, independent of how it was originally spelled.
func Serialize(flags, propagation uintptr, ext ExtFlag) []string {
	var out []string
	for _, name := range canonicalOrder {
		op := flagTable[name]
		if op.set != 0 && flags&op.set == op.set {
			out = append(out, name)
		}
	}
	for _, name := range canonicalPropagationOrder {
		op := propagationTable[name]
		if op.set != 0 && propagation&op.set == op.set {
			out = append(out, name)
		}
	}
	if ext&ExtCopySymlink != 0 {
		out = append(out, "copy-symlink")
	}
	return out
}
