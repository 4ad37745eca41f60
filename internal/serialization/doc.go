// Package serialization reads and writes .mpac checkpoint files, the
// on-disk format for classifier state dictionaries.
//
// A file holds a 64-byte fixed header, a JSON header describing the
// tensors, and the raw tensor data, 64-byte aligned. The JSON header
// carries the model type, class list and free-form metadata next to the
// per-tensor name, dtype, shape and data-section offset. A SHA-256
// digest of the data section lives in the fixed header and is verified
// on open unless the caller opts out. See format.go for the exact byte
// layout.
//
// Tensors are laid out in sorted name order, so writing the same state
// dict twice produces byte-identical files. Reads go through ReadAt,
// which lets one Reader load tensors from several goroutines.
//
//	writer, err := serialization.NewWriter("model.mpac")
//	if err != nil {
//	    return err
//	}
//	defer writer.Close()
//	if err := writer.WriteStateDict(model.StateDict(), "Classifier", classes, nil); err != nil {
//	    return err
//	}
//
// and on the way back in:
//
//	reader, err := serialization.NewReader("model.mpac")
//	if err != nil {
//	    return err
//	}
//	defer reader.Close()
//	stateDict, err := reader.ReadStateDict()
package serialization
