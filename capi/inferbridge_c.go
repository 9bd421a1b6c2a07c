package main

/*
#include <stdint.h>
#include <stdlib.h>

// ib_token_cb receives one token; return 0 to stop the stream.
typedef int (*ib_token_cb)(const char* token, void* user_data);

static int ib_invoke_token_cb(ib_token_cb cb, const char* token, void* user_data) {
	return cb(token, user_data);
}
*/
import "C"

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"sync"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/inferbridge"
	"github.com/opd-ai/inferbridge/component"
	"github.com/opd-ai/inferbridge/internal/handles"
	"github.com/opd-ai/inferbridge/platform"
	"github.com/opd-ai/inferbridge/status"
	"github.com/opd-ai/inferbridge/telemetry"
)

// Last failure, for pointer-returning operations that can only signal
// NULL.
var (
	lastErrMu sync.Mutex
	lastErr   error
)

func setLastError(err error) {
	lastErrMu.Lock()
	lastErr = err
	lastErrMu.Unlock()
	if err != nil {
		telemetry.EmitSDKError(telemetry.SDKErrorEvent{
			Code:    int32(status.CodeOf(err)),
			Message: err.Error(),
		})
	}
}

func failCode(err error) C.int {
	setLastError(err)
	return C.int(status.CodeOf(err))
}

//export ib_init
func ib_init() C.int {
	if platform.Get() == nil {
		// Hosts driving the C surface rarely supply a Go adapter.
		// Fall back to local files with an ephemeral secure-store key;
		// secrets stored through it do not survive a restart.
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return failCode(status.Errorf(status.StorageError, "generate secure-store key: %v", err))
		}
		adapter, err := platform.NewFileAdapter(filepath.Join(os.TempDir(), "inferbridge_secure.json"), key)
		if err != nil {
			return failCode(status.Errorf(status.StorageError, "create default adapter: %v", err))
		}
		if err := platform.Set(adapter); err != nil {
			return failCode(err)
		}
	}
	if err := inferbridge.Init(nil); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_shutdown
func ib_shutdown() {
	inferbridge.Shutdown()
}

//export ib_is_initialized
func ib_is_initialized() C.int {
	if inferbridge.IsInitialized() {
		return 1
	}
	return 0
}

//export ib_last_error_code
func ib_last_error_code() C.int {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return C.int(status.CodeOf(lastErr))
}

//export ib_last_error_message
func ib_last_error_message() *C.char {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	if lastErr == nil {
		return nil
	}
	return C.CString(lastErr.Error())
}

//export ib_free_string
func ib_free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

//export ib_free_buffer
func ib_free_buffer(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}

func lookupLLM(h C.uintptr_t) (*component.LLM, C.int) {
	llm, ok := handles.Lookup(uintptr(h)).(*component.LLM)
	if !ok {
		err := status.New(status.InvalidHandle, "invalid llm handle")
		return nil, failCode(err)
	}
	return llm, 0
}

//export ib_llm_create
func ib_llm_create() C.uintptr_t {
	llm, err := component.NewLLM()
	if err != nil {
		setLastError(err)
		logrus.WithFields(logrus.Fields{
			"function": "ib_llm_create",
			"error":    err.Error(),
		}).Error("Failed to create LLM component")
		return 0
	}
	return C.uintptr_t(handles.Register(llm))
}

//export ib_llm_destroy
func ib_llm_destroy(h C.uintptr_t) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.Destroy(); err != nil {
		return failCode(err)
	}
	handles.Unregister(uintptr(h))
	return 0
}

//export ib_llm_load_model
func ib_llm_load_model(h C.uintptr_t, path, id, name *C.char) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.LoadModel(C.GoString(path), C.GoString(id), C.GoString(name)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_llm_unload
func ib_llm_unload(h C.uintptr_t) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.Unload(); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_llm_is_loaded
func ib_llm_is_loaded(h C.uintptr_t) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return 0
	}
	if llm.IsLoaded() {
		return 1
	}
	return 0
}

//export ib_llm_get_state
func ib_llm_get_state(h C.uintptr_t) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return -1
	}
	return C.int(llm.GetState())
}

//export ib_llm_generate
func ib_llm_generate(h C.uintptr_t, prompt, options *C.char) *C.char {
	llm, code := lookupLLM(h)
	if code != 0 {
		return nil
	}
	result, err := llm.Generate(C.GoString(prompt), C.GoString(options))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

//export ib_llm_generate_stream
func ib_llm_generate_stream(h C.uintptr_t, prompt, options *C.char) *C.char {
	llm, code := lookupLLM(h)
	if code != 0 {
		return nil
	}
	result, err := llm.GenerateStream(C.GoString(prompt), C.GoString(options))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

// cTokenCallback adapts a C function pointer to the component token
// callback. Each token is marshaled to a fresh C string freed after
// the call returns.
type cTokenCallback struct {
	fn       C.ib_token_cb
	userData unsafe.Pointer
}

func (c *cTokenCallback) OnToken(token string) bool {
	ctoken := C.CString(token)
	defer C.free(unsafe.Pointer(ctoken))
	return C.ib_invoke_token_cb(c.fn, ctoken, c.userData) != 0
}

//export ib_llm_generate_stream_cb
func ib_llm_generate_stream_cb(h C.uintptr_t, prompt, options *C.char, cb C.ib_token_cb, userData unsafe.Pointer) *C.char {
	llm, code := lookupLLM(h)
	if code != 0 {
		return nil
	}
	if cb == nil {
		setLastError(status.New(status.InvalidArgument, "token callback is null"))
		return nil
	}
	result, err := llm.GenerateStreamWithCallback(C.GoString(prompt), C.GoString(options), &cTokenCallback{fn: cb, userData: userData})
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

//export ib_llm_cancel
func ib_llm_cancel(h C.uintptr_t) {
	llm, code := lookupLLM(h)
	if code != 0 {
		return
	}
	llm.Cancel()
}

//export ib_llm_load_lora
func ib_llm_load_lora(h C.uintptr_t, path *C.char, scale C.float) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.LoadLoRA(C.GoString(path), float32(scale)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_llm_remove_lora
func ib_llm_remove_lora(h C.uintptr_t, path *C.char) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.RemoveLoRA(C.GoString(path)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_llm_clear_lora
func ib_llm_clear_lora(h C.uintptr_t) C.int {
	llm, code := lookupLLM(h)
	if code != 0 {
		return code
	}
	if err := llm.ClearLoRA(); err != nil {
		return failCode(err)
	}
	return 0
}

func lookupVLM(h C.uintptr_t) (*component.VLM, C.int) {
	vlm, ok := handles.Lookup(uintptr(h)).(*component.VLM)
	if !ok {
		err := status.New(status.InvalidHandle, "invalid vlm handle")
		return nil, failCode(err)
	}
	return vlm, 0
}

//export ib_vlm_create
func ib_vlm_create() C.uintptr_t {
	vlm, err := component.NewVLM()
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.uintptr_t(handles.Register(vlm))
}

//export ib_vlm_destroy
func ib_vlm_destroy(h C.uintptr_t) C.int {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return code
	}
	if err := vlm.Destroy(); err != nil {
		return failCode(err)
	}
	handles.Unregister(uintptr(h))
	return 0
}

//export ib_vlm_load_model
func ib_vlm_load_model(h C.uintptr_t, path, id, name *C.char) C.int {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return code
	}
	if err := vlm.LoadModel(C.GoString(path), C.GoString(id), C.GoString(name)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_vlm_unload
func ib_vlm_unload(h C.uintptr_t) C.int {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return code
	}
	if err := vlm.Unload(); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_vlm_is_loaded
func ib_vlm_is_loaded(h C.uintptr_t) C.int {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return 0
	}
	if vlm.IsLoaded() {
		return 1
	}
	return 0
}

//export ib_vlm_get_state
func ib_vlm_get_state(h C.uintptr_t) C.int {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return -1
	}
	return C.int(vlm.GetState())
}

//export ib_vlm_generate_with_image
func ib_vlm_generate_with_image(h C.uintptr_t, prompt *C.char, image unsafe.Pointer, imageLen C.size_t, options *C.char) *C.char {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return nil
	}
	img := C.GoBytes(image, C.int(imageLen))
	result, err := vlm.GenerateWithImage(C.GoString(prompt), img, C.GoString(options))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

//export ib_vlm_generate_stream_with_image
func ib_vlm_generate_stream_with_image(h C.uintptr_t, prompt *C.char, image unsafe.Pointer, imageLen C.size_t, options *C.char, cb C.ib_token_cb, userData unsafe.Pointer) *C.char {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return nil
	}
	var tokenCb component.TokenCallback
	if cb != nil {
		tokenCb = &cTokenCallback{fn: cb, userData: userData}
	}
	img := C.GoBytes(image, C.int(imageLen))
	result, err := vlm.GenerateStreamWithImage(C.GoString(prompt), img, C.GoString(options), tokenCb)
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

//export ib_vlm_cancel
func ib_vlm_cancel(h C.uintptr_t) {
	vlm, code := lookupVLM(h)
	if code != 0 {
		return
	}
	vlm.Cancel()
}
