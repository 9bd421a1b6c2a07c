// Package main provides C API bindings for inferbridge, so host
// runtimes that cannot link Go directly (mobile shells, C/C++
// applications, other language bindings) can drive the on-device
// inference components through a plain C surface.
//
// # Build Instructions
//
// To build as a C shared library:
//
//	go build -buildmode=c-shared -o libinferbridge.so ./capi/
//
// This generates:
//   - libinferbridge.so: The shared library
//   - libinferbridge.h: Auto-generated C header with declarations
//
// # Handle Model
//
// Components are addressed by opaque integer handles. Handle zero is
// never valid; every operation rejects it with an invalid-handle code
// before doing anything else. Destroying a handle invalidates it
// permanently: a second destroy on the same value is rejected, never a
// crash.
//
// # C API Usage
//
//	#include "libinferbridge.h"
//
//	ib_init();
//	uintptr_t llm = ib_llm_create();
//	ib_llm_load_model(llm, "/models/tiny.gguf", "tiny", "Tiny");
//	char *result = ib_llm_generate(llm, "Hello", "{\"max_tokens\":64}");
//	if (result != NULL) {
//	    printf("%s\n", result);
//	    ib_free_string(result);
//	}
//	ib_llm_destroy(llm);
//	ib_shutdown();
//
// # Error Handling
//
// Operations returning int return 0 on success and a negative status
// code on failure. Operations returning pointers return NULL on
// failure; the code and message of the most recent failure are
// available through ib_last_error_code and ib_last_error_message.
//
// # Memory
//
// Every char* and buffer returned by this API is allocated with C
// malloc and owned by the caller: release strings with ib_free_string
// and buffers with ib_free_buffer.
//
// # Callback Bridging
//
// The streaming variant with live token delivery accepts a C function
// pointer invoked once per token, in generation order, from the
// engine's streaming thread. Returning 0 from the callback stops the
// stream. A callback that crashes would corrupt both runtimes; keep C
// callbacks small and non-throwing.
//
// # Files
//
//   - inferbridge_c.go: core lifecycle plus LLM and VLM families
//   - speech_c.go: STT, TTS, and VAD families
//   - doc.go: this documentation file
package main
