package oecs

import "github.com/rotisserie/eris"

// ErrDeadEntity is returned by an immediate operation (has/add/remove/get/
// set) against an entity that is not currently alive.
var ErrDeadEntity = eris.New("oecs: operation on dead entity")
