package process

import (
	"sort"

	"github.com/prometheus/procfs"
)

// Descendants returns root followed by every live process below it, in
// breadth-first order. Without a readable /proc the result is just root.
func Descendants(root int) []int {
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return []int{root}
	}
	pids, err := descendantsIn(fs, root)
	if err != nil {
		return []int{root}
	}
	return pids
}

func descendantsIn(fs procfs.FS, root int) ([]int, error) {
	procs, err := fs.AllProcs()
	if err != nil {
		return nil, err
	}

	children := make(map[int][]int, len(procs))
	for _, p := range procs {
		st, err := p.Stat()
		if err != nil {
			// exited between listing and stat
			continue
		}
		children[st.PPID] = append(children[st.PPID], p.PID)
	}

	out := []int{root}
	seen := map[int]bool{root: true}
	for i := 0; i < len(out); i++ {
		kids := children[out[i]]
		sort.Ints(kids)
		for _, k := range kids {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	return out, nil
}

// Alive reports whether pid names a running process. Zombies count as dead:
// they hold no resources beyond their exit status.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	fs, err := procfs.NewDefaultFS()
	if err != nil {
		return signalAlive(pid)
	}
	p, err := fs.Proc(pid)
	if err != nil {
		return false
	}
	st, err := p.Stat()
	if err != nil {
		return false
	}
	return st.State != "Z" && st.State != "X"
}
