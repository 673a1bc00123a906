package plugin

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

static void *ms_dlopen(const char *path) {
	return dlopen(path, RTLD_NOW | RTLD_LOCAL);
}

static void *ms_dlsym(void *handle, const char *name) {
	return dlsym(handle, name);
}

static const char *ms_dlerror(void) {
	return dlerror();
}

typedef const char *(*plugin_name_fn)(void);
typedef char *(*plugin_call_json_fn)(const char *, const char *);
typedef void (*plugin_free_fn)(char *);

static const char *call_plugin_name(void *fn) {
	return ((plugin_name_fn)fn)();
}

static char *call_plugin_call_json(void *fn, const char *func, const char *args_json) {
	return ((plugin_call_json_fn)fn)(func, args_json);
}

static void call_plugin_free(void *fn, char *ptr) {
	((plugin_free_fn)fn)(ptr);
}
*/
import "C"

import (
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/google/uuid"
)

// library wraps a dlopen handle and its cached symbol lookups, so
// plugin_free/plugin_call_json are resolved once per loaded library rather
// than on every call (§6.3, Plugin ABI and allocator hygiene).
type library struct {
	instanceID string
	name       string
	path       string
	handle     unsafe.Pointer
	callFn     unsafe.Pointer
	freeFn     unsafe.Pointer // nil if the plugin does not export plugin_free
}

// loadLibrary dlopens path and resolves plugin_name and plugin_call_json;
// plugin_free is resolved best-effort and left nil if absent.
func loadLibrary(path string) (*library, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("plugin library path does not exist: %s", path)
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	handle := C.ms_dlopen(cPath)
	if handle == nil {
		hint := archHint(path)
		return nil, fmt.Errorf("failed to load %s: %s.%s", path, C.GoString(C.ms_dlerror()), hint)
	}

	nameSym := symbol(handle, "plugin_name")
	if nameSym == nil {
		return nil, fmt.Errorf("missing symbol 'plugin_name' in %s: ensure the plugin exports it with C linkage", path)
	}
	rawName := C.call_plugin_name(nameSym)
	if rawName == nil {
		return nil, fmt.Errorf("plugin_name returned null for %s", path)
	}
	name := C.GoString(rawName)
	if name == "" {
		return nil, fmt.Errorf("plugin_name returned an empty string for %s", path)
	}

	callSym := symbol(handle, "plugin_call_json")
	if callSym == nil {
		return nil, fmt.Errorf("missing symbol 'plugin_call_json' in %s: ensure the plugin exports (func, args_json) -> char*", path)
	}

	return &library{
		instanceID: uuid.NewString(),
		name:       name,
		path:       path,
		handle:     handle,
		callFn:     callSym,
		freeFn:     symbol(handle, "plugin_free"),
	}, nil
}

func symbol(handle unsafe.Pointer, name string) unsafe.Pointer {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	return C.ms_dlsym(handle, cName)
}

// call invokes plugin_call_json with func and a JSON array of arguments,
// frees the returned buffer via plugin_free when exported (else libc free),
// and returns the raw JSON bytes for the caller to decode.
func (l *library) call(funcName string, argsJSON []byte) ([]byte, error) {
	cFunc := C.CString(funcName)
	defer C.free(unsafe.Pointer(cFunc))
	cArgs := C.CString(string(argsJSON))
	defer C.free(unsafe.Pointer(cArgs))

	out := C.call_plugin_call_json(l.callFn, cFunc, cArgs)
	if out == nil {
		return nil, fmt.Errorf("plugin %s returned null for %s", l.name, funcName)
	}
	result := []byte(C.GoString(out))

	if l.freeFn != nil {
		C.call_plugin_free(l.freeFn, out)
	} else {
		C.free(unsafe.Pointer(out))
	}
	return result, nil
}

// archHint inspects the file's header bytes to report a best-effort target
// architecture, distinguishing "wrong path" from "wrong architecture"
// failures (§6.3, Supplemented load diagnostics).
func archHint(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	var buf [64]byte
	n, _ := f.Read(buf[:])
	if n < 4 {
		return ""
	}

	var arch string
	switch {
	case buf[0] == 0x7f && buf[1] == 'E' && buf[2] == 'L' && buf[3] == 'F':
		if n >= 20 {
			machine := uint16(buf[18]) | uint16(buf[19])<<8
			arch = elfArch(buf[4], machine)
		}
	case buf[0] == 'M' && buf[1] == 'Z':
		arch = peArch(f)
	default:
		magic := uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
		switch magic {
		case 0xfeedface, 0xcefaedfe:
			arch = "macho-32"
		case 0xfeedfacf, 0xcffaedfe:
			arch = "macho-64"
		}
	}
	if arch == "" {
		return ""
	}
	return fmt.Sprintf(" Detected binary arch %q, host arch %q.", arch, runtime.GOARCH)
}

func elfArch(class byte, machine uint16) string {
	switch {
	case class == 2 && machine == 62:
		return "x86_64"
	case class == 1 && machine == 3:
		return "x86"
	case machine == 183:
		return "aarch64"
	default:
		return fmt.Sprintf("elf-machine-%d", machine)
	}
}

func peArch(f *os.File) string {
	var stub [0x40]byte
	if _, err := f.ReadAt(stub[:], 0); err != nil {
		return ""
	}
	e_lfanew := int64(stub[0x3c]) | int64(stub[0x3d])<<8 | int64(stub[0x3e])<<16 | int64(stub[0x3f])<<24

	var machine [6]byte
	if _, err := f.ReadAt(machine[:], e_lfanew); err != nil {
		return ""
	}
	m := uint16(machine[4]) | uint16(machine[5])<<8
	switch m {
	case 0x8664:
		return "x86_64"
	case 0x014c:
		return "x86"
	case 0xaa64:
		return "aarch64"
	default:
		return fmt.Sprintf("pe-machine-0x%x", m)
	}
}
