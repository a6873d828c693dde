// Package channel implements named method channels: a dispatch table on the
// host side (Endpoint), a router keyed by channel name (Messenger), a wire
// codec (JSONMethodCodec), and a caller-side handle (MethodChannel).
//
// A call names a method and carries optional JSON arguments. Every call gets
// exactly one Reply: a success value, an error envelope, or the
// not-implemented marker for methods the endpoint does not handle. The
// not-implemented marker is a protocol result, not an error.
package channel
