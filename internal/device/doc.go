// Package device defines the value types shared by the local registry, the
// remote client and the mirror server.
//
// # Key Types
//
//   - Model: closed set of hardware variants (IchibuV1, IchibuV2, LibraV0)
//   - Identity: model plus serial, canonical form "<Model>-<Serial>"
//   - Config: the scale unit configuration record
//   - Duration: time.Duration with a compact text encoding ("60s", "250ms")
//   - Reading: a telemetry event published by a scale unit
//
// # Identity Format
//
// The canonical form joins the model tag and the serial with "-". Serials are
// restricted to [A-Za-z0-9_.], so ParseIdentity splits on the first "-"
// without ambiguity:
//
//	id, err := device.ParseIdentity("LibraV0-Lib0")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(id.Model, id.Serial) // LibraV0 Lib0
//
// Unknown model tags fail with ErrUnknownModel; there is no fallback variant.
//
// # Thread Safety
//
// All types are plain values and safe to copy between goroutines.
package device
