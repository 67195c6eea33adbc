package redisx

import "time"

const (
	// Session token lookup: sess:{token} -> {"id":"...","email":"...","role":"..."}
	// Written by the identity provider; this service only reads it.
	KeySession = "sess:%s"

	// Per-user cart: cart:{user_id} -> JSON item list
	KeyCart = "cart:%s"

	// Payment status cache: payment_status:{tx_ref} -> SUCCESS | FAILED
	// Only terminal states are cached.
	KeyPaymentStatus = "payment_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCart        = 7 * 24 * time.Hour
	TTLStatusCache = 30 * time.Minute
	TTLDedup       = 48 * time.Hour
)
