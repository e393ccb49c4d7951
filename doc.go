// Package svtav1 is a safe Go binding for the SVT-AV1 encoder library
// (libSvtAv1Enc, API 2.3).
//
// An encode runs in two stages:
//
//	cfg, err := svtav1.NewEncoderConfig(1280, 720, svtav1.WithPreset(10))
//	if err != nil { ... }
//	defer cfg.Close()
//	cfg.Config().SetFrameRate(30, 1)
//	if err := cfg.SetParameter("qp", "30"); err != nil { ... }
//
//	enc, err := cfg.NewEncoder()
//	if err != nil { ... }
//	defer enc.Close()
//
//	for frames {
//		enc.SendFrame(frame, svtav1.WithPTS(pts))
//		for {
//			pkt, err := enc.GetPacket(false)
//			if svtav1.IsEmptyQueue(err) { break }
//			...
//			pkt.Release()
//		}
//	}
//	enc.SendEOS()
//	enc.Drain(func(pkt *svtav1.Packet) error { ... })
//
// # Ownership
//
// EncoderConfig owns the native handle until NewEncoder succeeds, after which
// the Encoder owns it. Packets own library buffers until released, and
// Encoder.Close releases any that remain before destroying the encoder.
// Frame planes are borrowed only for the duration of SendFrame.
//
// # Errors
//
// Native return codes are Status values. Failed calls return *CallError or
// *ParameterError, both unwrapping to the Status. The two normal loop
// endings, an empty queue and encoder shutdown, are tested with IsEmptyQueue
// and IsShutdown. Argument errors (dimensions, preset) are returned before
// the library is called. A library that cannot be loaded or cannot create a
// handle is an environment fault: NewEncoderConfig panics with *FatalError.
//
// # Native Library
//
// With CGO enabled the package links libSvtAv1Enc through pkg-config. With
// CGO_ENABLED=0 on Linux and macOS it loads the library at run time with
// purego, searching SVT_AV1_LIB (file or directory), SVT_AV1_LIB_PATH, the
// executable's directory, the module's build/ directory, and system paths.
//
// # Build Tags
//
//   - nosvtav1: build without the library; Available reports false
package svtav1
