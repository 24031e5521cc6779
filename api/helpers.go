package api

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.vocdoni.io/dvote/log"

	"github.com/veilmarket/veilmarket/types"
	"github.com/veilmarket/veilmarket/util"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// urlParamID decodes a hex record identifier from the URL. On failure it
// writes the error response and reports false.
func urlParamID(w http.ResponseWriter, r *http.Request, param string) (types.RecordID, bool) {
	raw, err := hex.DecodeString(util.TrimHex(chi.URLParam(r, param)))
	if err != nil {
		ErrMalformedID.Withf("could not decode %s: %v", param, err).Write(w)
		return types.RecordID{}, false
	}
	id, err := types.AccountIDFromBytes(raw)
	if err != nil {
		ErrMalformedID.Withf("could not decode %s: %v", param, err).Write(w)
		return types.RecordID{}, false
	}
	return id, true
}

// wordFromHex converts a hex-encoded ciphertext word, enforcing its width.
func wordFromHex(b types.HexBytes) (types.Word, error) {
	var w types.Word
	if len(b) != types.WordSize {
		return w, fmt.Errorf("ciphertext word must be %d bytes, got %d", types.WordSize, len(b))
	}
	copy(w[:], b)
	return w, nil
}

// pubKeyFromHex converts a hex-encoded x25519 public key.
func pubKeyFromHex(b types.HexBytes) ([32]byte, error) {
	var pk [32]byte
	if len(b) != len(pk) {
		return pk, fmt.Errorf("public key must be %d bytes, got %d", len(pk), len(b))
	}
	copy(pk[:], b)
	return pk, nil
}
