package host

import "log"

// backlog keeps the most recent trace lines so they can be printed after
// a fault without logging every instruction.
type backlog struct {
	entries []logEntry
	n       int
	max     int
}

type logEntry struct {
	format string
	args   []any
}

const defaultBacklog = 100

func (b *backlog) LazyPrintf(format string, args ...any) {
	if b.max == 0 {
		b.max = defaultBacklog
	}
	if b.n < len(b.entries) {
		b.entries[b.n] = logEntry{format, args}
	} else {
		b.entries = append(b.entries, logEntry{format, args})
	}
	b.n = (b.n + 1) % b.max
}

// Emit logs the retained lines, oldest first.
func (b *backlog) Emit(logf func(string, ...any)) {
	if len(b.entries) == 0 {
		return
	}
	if logf == nil {
		logf = log.Printf
	}
	for i := b.n; ; i++ {
		i %= len(b.entries)
		logf(b.entries[i].format, b.entries[i].args...)
		if (i+1)%len(b.entries) == b.n%len(b.entries) {
			break
		}
	}
}

func (b *backlog) Reset() {
	b.entries = b.entries[:0]
	b.n = 0
}
