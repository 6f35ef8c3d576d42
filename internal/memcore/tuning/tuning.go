// Package tuning provides a hot-reloadable runtime configuration for the
// memory substrate's tunables, watched via fsnotify the same way the
// runtime's virtual filesystem layer watches for file changes.
package tuning

import (
	"encoding/json"
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/omnilisp-lang/omnilisp/internal/diagnostics"
	"github.com/omnilisp-lang/omnilisp/internal/errors"
)

// Values holds the live-tunable knobs read from the tuning file. Anything
// not safe to change at runtime (e.g. SymObj's inline edge capacity)
// belongs in a Config/Option at construction time instead, not here.
type Values struct {
	ArenaInitialChunkSize  int `json:"arena_initial_chunk_size"`
	ScratchTrimThresholdKB int `json:"scratch_trim_threshold_kb"`
	ComponentSlabSize      int `json:"component_slab_size"`
	TetherCacheCapacity    int `json:"tether_cache_capacity"`
	DismantleBatchSize     int `json:"dismantle_batch_size"`
}

func defaultValues() Values {
	return Values{
		ArenaInitialChunkSize:  4096,
		ScratchTrimThresholdKB: 1024,
		ComponentSlabSize:      128,
		TetherCacheCapacity:    16,
		DismantleBatchSize:     64,
	}
}

// Watcher holds the current Values behind an atomic pointer, refreshed
// whenever the backing file changes on disk.
type Watcher struct {
	path    string
	current atomic.Pointer[Values]
	fsw     *fsnotify.Watcher
	sink    *diagnostics.Sink
	done    chan struct{}
}

// Watch starts watching path for changes, parsing it as JSON into Values.
// If path does not exist yet, Watch starts from defaultValues() and picks
// up the file once it's created.
func Watch(path string, sink *diagnostics.Sink) (*Watcher, error) {
	w := &Watcher{path: path, sink: sink, done: make(chan struct{})}

	initial := defaultValues()
	if loaded, err := load(path); err == nil {
		initial = loaded
	}

	w.current.Store(&initial)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.fsw = fsw

	if err := fsw.Add(dirOf(path)); err != nil {
		fsw.Close()

		return nil, err
	}

	go w.loop()

	return w, nil
}

// Values returns the currently active tunables. Safe for concurrent use.
func (w *Watcher) Values() Values {
	return *w.current.Load()
}

// Close stops the underlying file watch.
func (w *Watcher) Close() error {
	close(w.done)

	return w.fsw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			if ev.Name != w.path {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.warn("tuning watcher error: " + err.Error())

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) reload() {
	v, err := load(w.path)
	if err != nil {
		w.warn("tuning reload failed, keeping prior values: " + err.Error())

		return
	}

	w.current.Store(&v)
}

func (w *Watcher) warn(msg string) {
	if w.sink != nil {
		w.sink.Emit(diagnostics.New().Warning().Configuration().Message(msg).Build())
	}
}

func load(path string) (Values, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Values{}, err
	}

	v := defaultValues()
	if err := json.Unmarshal(data, &v); err != nil {
		return Values{}, errors.InvalidConfiguration("tuning_file", path)
	}

	return v, nil
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}

	return "."
}
