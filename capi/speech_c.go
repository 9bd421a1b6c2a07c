package main

/*
#include <stdint.h>
#include <stdlib.h>
*/
import "C"

import (
	"unsafe"

	"github.com/opd-ai/inferbridge/component"
	"github.com/opd-ai/inferbridge/internal/handles"
	"github.com/opd-ai/inferbridge/status"
)

func lookupSTT(h C.uintptr_t) (*component.STT, C.int) {
	stt, ok := handles.Lookup(uintptr(h)).(*component.STT)
	if !ok {
		return nil, failCode(status.New(status.InvalidHandle, "invalid stt handle"))
	}
	return stt, 0
}

//export ib_stt_create
func ib_stt_create() C.uintptr_t {
	stt, err := component.NewSTT()
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.uintptr_t(handles.Register(stt))
}

//export ib_stt_destroy
func ib_stt_destroy(h C.uintptr_t) C.int {
	stt, code := lookupSTT(h)
	if code != 0 {
		return code
	}
	if err := stt.Destroy(); err != nil {
		return failCode(err)
	}
	handles.Unregister(uintptr(h))
	return 0
}

//export ib_stt_load_model
func ib_stt_load_model(h C.uintptr_t, path, id, name *C.char) C.int {
	stt, code := lookupSTT(h)
	if code != 0 {
		return code
	}
	if err := stt.LoadModel(C.GoString(path), C.GoString(id), C.GoString(name)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_stt_unload
func ib_stt_unload(h C.uintptr_t) C.int {
	stt, code := lookupSTT(h)
	if code != 0 {
		return code
	}
	if err := stt.Unload(); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_stt_is_loaded
func ib_stt_is_loaded(h C.uintptr_t) C.int {
	stt, code := lookupSTT(h)
	if code != 0 {
		return 0
	}
	if stt.IsLoaded() {
		return 1
	}
	return 0
}

//export ib_stt_get_state
func ib_stt_get_state(h C.uintptr_t) C.int {
	stt, code := lookupSTT(h)
	if code != 0 {
		return -1
	}
	return C.int(stt.GetState())
}

//export ib_stt_transcribe
func ib_stt_transcribe(h C.uintptr_t, audio unsafe.Pointer, audioLen C.size_t, options *C.char) *C.char {
	stt, code := lookupSTT(h)
	if code != 0 {
		return nil
	}
	data := C.GoBytes(audio, C.int(audioLen))
	result, err := stt.Transcribe(data, C.GoString(options))
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

func lookupTTS(h C.uintptr_t) (*component.TTS, C.int) {
	tts, ok := handles.Lookup(uintptr(h)).(*component.TTS)
	if !ok {
		return nil, failCode(status.New(status.InvalidHandle, "invalid tts handle"))
	}
	return tts, 0
}

//export ib_tts_create
func ib_tts_create() C.uintptr_t {
	tts, err := component.NewTTS()
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.uintptr_t(handles.Register(tts))
}

//export ib_tts_destroy
func ib_tts_destroy(h C.uintptr_t) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return code
	}
	if err := tts.Destroy(); err != nil {
		return failCode(err)
	}
	handles.Unregister(uintptr(h))
	return 0
}

//export ib_tts_load_voice
func ib_tts_load_voice(h C.uintptr_t, path, id, name *C.char) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return code
	}
	if err := tts.LoadVoice(C.GoString(path), C.GoString(id), C.GoString(name)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_tts_unload
func ib_tts_unload(h C.uintptr_t) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return code
	}
	if err := tts.Unload(); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_tts_is_loaded
func ib_tts_is_loaded(h C.uintptr_t) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return 0
	}
	if tts.IsLoaded() {
		return 1
	}
	return 0
}

//export ib_tts_get_state
func ib_tts_get_state(h C.uintptr_t) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return -1
	}
	return C.int(tts.GetState())
}

// ib_tts_synthesize renders text to 16-bit PCM. On success the returned
// buffer is malloc-owned by the caller (release with ib_free_buffer)
// and *out_len holds its size in bytes.
//
//export ib_tts_synthesize
func ib_tts_synthesize(h C.uintptr_t, text, options *C.char, outLen *C.size_t) unsafe.Pointer {
	tts, code := lookupTTS(h)
	if code != 0 {
		return nil
	}
	if outLen == nil {
		setLastError(status.New(status.InvalidArgument, "out_len is null"))
		return nil
	}
	pcm, err := tts.Synthesize(C.GoString(text), C.GoString(options))
	if err != nil {
		setLastError(err)
		return nil
	}
	*outLen = C.size_t(len(pcm))
	return C.CBytes(pcm)
}

//export ib_tts_synthesize_to_file
func ib_tts_synthesize_to_file(h C.uintptr_t, text, options, path *C.char) C.int {
	tts, code := lookupTTS(h)
	if code != 0 {
		return code
	}
	if err := tts.SynthesizeToFile(C.GoString(text), C.GoString(options), C.GoString(path)); err != nil {
		return failCode(err)
	}
	return 0
}

func lookupVAD(h C.uintptr_t) (*component.VAD, C.int) {
	vad, ok := handles.Lookup(uintptr(h)).(*component.VAD)
	if !ok {
		return nil, failCode(status.New(status.InvalidHandle, "invalid vad handle"))
	}
	return vad, 0
}

//export ib_vad_create
func ib_vad_create() C.uintptr_t {
	vad, err := component.NewVAD()
	if err != nil {
		setLastError(err)
		return 0
	}
	return C.uintptr_t(handles.Register(vad))
}

//export ib_vad_destroy
func ib_vad_destroy(h C.uintptr_t) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return code
	}
	if err := vad.Destroy(); err != nil {
		return failCode(err)
	}
	handles.Unregister(uintptr(h))
	return 0
}

//export ib_vad_initialize
func ib_vad_initialize(h C.uintptr_t, sampleRate C.int) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return code
	}
	if err := vad.Initialize(int(sampleRate)); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_vad_is_loaded
func ib_vad_is_loaded(h C.uintptr_t) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return 0
	}
	if vad.IsLoaded() {
		return 1
	}
	return 0
}

//export ib_vad_get_state
func ib_vad_get_state(h C.uintptr_t) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return -1
	}
	return C.int(vad.GetState())
}

//export ib_vad_process
func ib_vad_process(h C.uintptr_t, samples *C.float, sampleCount C.size_t) *C.char {
	vad, code := lookupVAD(h)
	if code != 0 {
		return nil
	}
	if samples == nil || sampleCount == 0 {
		setLastError(status.New(status.InvalidArgument, "samples are null"))
		return nil
	}
	frame := unsafe.Slice((*float32)(unsafe.Pointer(samples)), int(sampleCount))
	result, err := vad.Process(frame)
	if err != nil {
		setLastError(err)
		return nil
	}
	return C.CString(result)
}

//export ib_vad_reset
func ib_vad_reset(h C.uintptr_t) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return code
	}
	if err := vad.Reset(); err != nil {
		return failCode(err)
	}
	return 0
}

//export ib_vad_stop
func ib_vad_stop(h C.uintptr_t) C.int {
	vad, code := lookupVAD(h)
	if code != 0 {
		return code
	}
	if err := vad.Stop(); err != nil {
		return failCode(err)
	}
	return 0
}
