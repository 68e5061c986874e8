package trace

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/provgraph/pvm/pkg/pvm"
)

// AuditEvent is one syscall observation from the CADETS audit pipeline.
// Optional fields are pointers; handlers that need one fail with a
// MissingFieldError when it is absent.
type AuditEvent struct {
	Event        string    `json:"event"`
	Time         int64     `json:"time"`
	PID          int32     `json:"pid"`
	PPID         int32     `json:"ppid"`
	TID          int32     `json:"tid"`
	UID          int32     `json:"uid"`
	Exec         string    `json:"exec"`
	Retval       int32     `json:"retval"`
	SubjProcUUID uuid.UUID `json:"subjprocuuid"`
	SubjThrUUID  uuid.UUID `json:"subjthruuid"`

	Host            *uuid.UUID `json:"host"`
	FD              *int32     `json:"fd"`
	CPUID           *int32     `json:"cpu_id"`
	Cmdline         *string    `json:"cmdline"`
	UPath1          *string    `json:"upath1"`
	UPath2          *string    `json:"upath2"`
	Flags           *int32     `json:"flags"`
	FDPath          *string    `json:"fdpath"`
	ArgObjUUID1     *uuid.UUID `json:"arg_objuuid1"`
	ArgObjUUID2     *uuid.UUID `json:"arg_objuuid2"`
	RetObjUUID1     *uuid.UUID `json:"ret_objuuid1"`
	RetObjUUID2     *uuid.UUID `json:"ret_objuuid2"`
	RetFD1          *int32     `json:"ret_fd1"`
	RetFD2          *int32     `json:"ret_fd2"`
	ArgMemFlags     []string   `json:"arg_mem_flags"`
	ArgSharingFlags []string   `json:"arg_sharing_flags"`
	Address         *string    `json:"address"`
	Port            *uint16    `json:"port"`
	ArgUID          *int64     `json:"arg_uid"`
	ArgEUID         *int64     `json:"arg_euid"`
	ArgRUID         *int64     `json:"arg_ruid"`
	ArgSUID         *int64     `json:"arg_suid"`
	ArgGID          *int64     `json:"arg_gid"`
	ArgEGID         *int64     `json:"arg_egid"`
	ArgRGID         *int64     `json:"arg_rgid"`
	ArgSGID         *int64     `json:"arg_sgid"`
	Login           *string    `json:"login"`
	Mode            *uint32    `json:"mode"`

	offset int
}

// Timestamp returns the record time, which arrives as nanoseconds since the
// epoch.
func (e *AuditEvent) Timestamp() time.Time {
	return time.Unix(0, e.Time).UTC()
}

// FBTEvent is one kernel-probe observation. Accepted but not mapped.
type FBTEvent struct {
	Event  string    `json:"event"`
	Host   uuid.UUID `json:"host"`
	Time   int64     `json:"time"`
	SoUUID uuid.UUID `json:"so_uuid"`
	LPort  int32     `json:"lport"`
	FPort  int32     `json:"fport"`
	LAddr  string    `json:"laddr"`
	FAddr  string    `json:"faddr"`

	offset int
}

// TraceEvent is a CADETS trace record: exactly one of Audit or FBT is set.
type TraceEvent struct {
	Audit *AuditEvent
	FBT   *FBTEvent
}

// Decode deserialises one trace line. The two record shapes share no
// distinguishing tag, so the FBT-only so_uuid field picks the variant.
func Decode(line []byte) (*TraceEvent, error) {
	var probe struct {
		SoUUID *uuid.UUID `json:"so_uuid"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return nil, err
	}
	if probe.SoUUID != nil {
		fbt := &FBTEvent{offset: -1}
		if err := json.Unmarshal(line, fbt); err != nil {
			return nil, err
		}
		return &TraceEvent{FBT: fbt}, nil
	}
	audit := &AuditEvent{offset: -1}
	if err := json.Unmarshal(line, audit); err != nil {
		return nil, err
	}
	return &TraceEvent{Audit: audit}, nil
}

// SetOffset stamps the record with its input line number, carried into the
// transaction context as trace_offset.
func (e *TraceEvent) SetOffset(offset int) {
	if e.Audit != nil {
		e.Audit.offset = offset
	}
	if e.FBT != nil {
		e.FBT.offset = offset
	}
}

// Update normalises the record before processing: every UUID is rewritten
// under a v5 derivation keyed by the host UUID so identifiers are
// unambiguous across hosts.
func (e *TraceEvent) Update() {
	a := e.Audit
	if a == nil || a.Host == nil {
		return
	}
	host := *a.Host
	mapUUID := func(u uuid.UUID) uuid.UUID {
		return uuid.NewSHA1(host, u[:])
	}
	a.SubjProcUUID = mapUUID(a.SubjProcUUID)
	a.SubjThrUUID = mapUUID(a.SubjThrUUID)
	for _, p := range []**uuid.UUID{&a.ArgObjUUID1, &a.ArgObjUUID2, &a.RetObjUUID1, &a.RetObjUUID2} {
		if *p != nil {
			mapped := mapUUID(**p)
			*p = &mapped
		}
	}
}

// missing builds the error for a handler-required field that is absent.
func (e *AuditEvent) missing(field string) error {
	return &pvm.MissingFieldError{Event: e.Event, Field: field}
}

func (e *AuditEvent) uuidField(p *uuid.UUID, name string) (uuid.UUID, error) {
	if p == nil {
		return uuid.Nil, e.missing(name)
	}
	return *p, nil
}

func (e *AuditEvent) stringField(p *string, name string) (string, error) {
	if p == nil {
		return "", e.missing(name)
	}
	return *p, nil
}

func (e *AuditEvent) int64Field(p *int64, name string) (int64, error) {
	if p == nil {
		return 0, e.missing(name)
	}
	return *p, nil
}
