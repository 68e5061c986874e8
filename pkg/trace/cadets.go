package trace

import (
	"fmt"
	"strconv"
	"time"

	"github.com/provgraph/pvm/pkg/pvm"
	"github.com/provgraph/pvm/pkg/types"
)

// Concrete types of the CADETS dialect.
var (
	ProcessType = &types.ConcreteType{
		PVM:  types.Actor,
		Name: "process",
		Props: map[string]bool{
			"euid":       true,
			"ruid":       true,
			"suid":       true,
			"egid":       true,
			"rgid":       true,
			"sgid":       true,
			"pid":        false,
			"cmdline":    true,
			"login_name": true,
		},
	}
	FileType = &types.ConcreteType{
		PVM:  types.Store,
		Name: "file",
		Props: map[string]bool{
			"owner_uid": true,
			"owner_gid": true,
			"mode":      true,
		},
	}
	SocketType = &types.ConcreteType{
		PVM:   types.Conduit,
		Name:  "socket",
		Props: map[string]bool{},
	}
	PipeType = &types.ConcreteType{
		PVM:   types.Conduit,
		Name:  "pipe",
		Props: map[string]bool{},
	}
	PttyType = &types.ConcreteType{
		PVM:  types.Conduit,
		Name: "ptty",
		Props: map[string]bool{
			"owner_uid": true,
			"owner_gid": true,
			"mode":      true,
		},
	}
	CadetsCtx = &types.ContextType{
		Name:  "cadets_context",
		Props: []string{"time", "event", "host", "trace_offset"},
	}
)

// Init registers the dialect's types with the PVM.
func Init(p *pvm.PVM) {
	p.RegisterDataType(ProcessType)
	p.RegisterDataType(FileType)
	p.RegisterDataType(SocketType)
	p.RegisterDataType(PipeType)
	p.RegisterDataType(PttyType)
	p.RegisterCtxType(CadetsCtx)
}

// Process applies the record to the PVM inside its own transaction. FBT
// records are accepted and dropped.
func (e *TraceEvent) Process(p *pvm.PVM) error {
	if e.Audit != nil {
		return e.Audit.parse(p)
	}
	return nil
}

func (e *AuditEvent) parse(p *pvm.PVM) error {
	host, err := e.uuidField(e.Host, "host")
	if err != nil {
		return err
	}
	ctx := map[string]string{
		"event": e.Event,
		"host":  host.String(),
		"time":  e.Timestamp().Format(time.RFC3339Nano),
	}
	if e.offset >= 0 {
		ctx["trace_offset"] = strconv.Itoa(e.offset)
	}

	tr, err := p.Transaction(CadetsCtx, ctx)
	if err != nil {
		return err
	}
	if err := e.dispatch(p, tr); err != nil {
		tr.Rollback()
		return err
	}
	tr.Commit()
	return nil
}

func (e *AuditEvent) dispatch(p *pvm.PVM, tr *pvm.Transaction) error {
	pro, err := tr.Declare(ProcessType, e.SubjProcUUID, map[string]string{
		"cmdline": e.Exec,
		"pid":     strconv.FormatInt(int64(e.PID), 10),
	})
	if err != nil {
		return err
	}
	switch e.Event {
	case "audit:event:aue_accept:":
		return e.posixAccept(pro, tr)
	case "audit:event:aue_bind:":
		return e.posixBind(pro, tr)
	case "audit:event:aue_chdir:", "audit:event:aue_fchdir:":
		return e.posixChdir(pro, tr)
	case "audit:event:aue_chmod:", "audit:event:aue_fchmodat:":
		return e.posixChmod(pro, tr)
	case "audit:event:aue_chown:":
		return e.posixChown(pro, tr)
	case "audit:event:aue_close:":
		return e.posixClose(pro, tr)
	case "audit:event:aue_connect:":
		return e.posixConnect(pro, tr)
	case "audit:event:aue_execve:":
		return e.posixExec(pro, tr)
	case "audit:event:aue_exit:":
		return e.posixExit(pro, tr)
	case "audit:event:aue_fork:", "audit:event:aue_pdfork:", "audit:event:aue_vfork:":
		return e.posixFork(pro, tr)
	case "audit:event:aue_fchmod:":
		return e.posixFchmod(pro, tr)
	case "audit:event:aue_fchown:":
		return e.posixFchown(pro, tr)
	case "audit:event:aue_link:":
		return e.posixLink(pro, tr)
	case "audit:event:aue_listen:":
		return e.posixListen(pro, tr)
	case "audit:event:aue_mmap:":
		return e.posixMmap(pro, tr)
	case "audit:event:aue_open_rwtc:", "audit:event:aue_openat_rwtc:":
		return e.posixOpen(pro, tr)
	case "audit:event:aue_pipe:":
		return e.posixPipe(pro, tr)
	case "audit:event:aue_posix_openpt:":
		return e.posixOpenpt(pro, tr)
	case "audit:event:aue_read:", "audit:event:aue_pread:":
		return e.posixRead(pro, tr)
	case "audit:event:aue_recvmsg:", "audit:event:aue_recvfrom:":
		return e.posixRecv(pro, tr)
	case "audit:event:aue_rename:":
		return e.posixRename(pro, tr)
	case "audit:event:aue_sendmsg:", "audit:event:aue_sendto:":
		return e.posixSend(pro, tr)
	case "audit:event:aue_setegid:":
		return e.posixSetegid(pro, tr)
	case "audit:event:aue_seteuid:":
		return e.posixSeteuid(pro, tr)
	case "audit:event:aue_setgid:":
		return e.posixSetgid(pro, tr)
	case "audit:event:aue_setlogin:":
		return e.posixSetlogin(pro, tr)
	case "audit:event:aue_setregid:":
		return e.posixSetregid(pro, tr)
	case "audit:event:aue_setresgid:":
		return e.posixSetresgid(pro, tr)
	case "audit:event:aue_setresuid:":
		return e.posixSetresuid(pro, tr)
	case "audit:event:aue_setreuid:":
		return e.posixSetreuid(pro, tr)
	case "audit:event:aue_setuid:":
		return e.posixSetuid(pro, tr)
	case "audit:event:aue_socket:":
		return e.posixSocket(pro, tr)
	case "audit:event:aue_socketpair:":
		return e.posixSocketpair(pro, tr)
	case "audit:event:aue_unlink:":
		return e.posixUnlink(pro, tr)
	case "audit:event:aue_write:", "audit:event:aue_pwrite:", "audit:event:aue_writev:":
		return e.posixWrite(pro, tr)
	case "audit:event:aue_dup2:":
		return nil // descriptor aliasing carries no flow
	default:
		p.RecordUnparsed(e.Event)
		return nil
	}
}

// optSockName derives the socket's name from upath1 or (address, port), if
// either is present.
func (e *AuditEvent) optSockName() (types.Name, bool, error) {
	if e.UPath1 != nil {
		return types.PathName(*e.UPath1), true, nil
	}
	if e.Port != nil {
		addr, err := e.stringField(e.Address, "address")
		if err != nil {
			return types.Name{}, false, err
		}
		return types.NetName(addr, *e.Port), true, nil
	}
	return types.Name{}, false, nil
}

func (e *AuditEvent) sockName() (types.Name, error) {
	n, ok, err := e.optSockName()
	if err != nil {
		return types.Name{}, err
	}
	if !ok {
		return types.Name{}, e.missing("upath1, port")
	}
	return n, nil
}

func (e *AuditEvent) posixExec(pro types.ID, tr *pvm.Transaction) error {
	cmdline, err := e.stringField(e.Cmdline, "cmdline")
	if err != nil {
		return err
	}
	binUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	binName, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}

	bin, err := tr.Declare(FileType, binUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Name(bin, types.PathName(binName)); err != nil {
		return err
	}
	if err := tr.Meta(pro, "cmdline", cmdline); err != nil {
		return err
	}
	if err := tr.Source(pro, bin); err != nil {
		return err
	}

	if e.ArgObjUUID2 != nil {
		ldName, err := e.stringField(e.UPath2, "upath2")
		if err != nil {
			return err
		}
		ld, err := tr.Declare(FileType, *e.ArgObjUUID2, nil)
		if err != nil {
			return err
		}
		if err := tr.Name(ld, types.PathName(ldName)); err != nil {
			return err
		}
		if err := tr.Source(pro, ld); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixFork(pro types.ID, tr *pvm.Transaction) error {
	childUUID, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	ch, err := tr.Derive(pro, childUUID)
	if err != nil {
		return err
	}
	if err := tr.Meta(ch, "pid", strconv.FormatInt(int64(e.Retval), 10)); err != nil {
		return err
	}
	return tr.Source(ch, pro)
}

func (e *AuditEvent) posixExit(pro types.ID, tr *pvm.Transaction) error {
	tr.Release(e.SubjProcUUID)
	return nil
}

func (e *AuditEvent) posixOpen(pro types.ID, tr *pvm.Transaction) error {
	if e.RetObjUUID1 == nil {
		return nil
	}
	fname, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, *e.RetObjUUID1, nil)
	if err != nil {
		return err
	}
	return tr.Name(f, types.PathName(fname))
}

// declareFD declares the file behind arg_objuuid1 and names it from fdpath
// when the path is known.
func (e *AuditEvent) declareFD(tr *pvm.Transaction) (types.ID, error) {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return types.NoID, err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return types.NoID, err
	}
	if e.FDPath != nil && *e.FDPath != "<unknown>" {
		if err := tr.Name(f, types.PathName(*e.FDPath)); err != nil {
			return types.NoID, err
		}
	}
	return f, nil
}

func (e *AuditEvent) posixRead(pro types.ID, tr *pvm.Transaction) error {
	f, err := e.declareFD(tr)
	if err != nil {
		return err
	}
	return tr.SourceNBytes(pro, f, int64(e.Retval))
}

func (e *AuditEvent) posixWrite(pro types.ID, tr *pvm.Transaction) error {
	f, err := e.declareFD(tr)
	if err != nil {
		return err
	}
	return tr.SinkStartNBytes(pro, f, int64(e.Retval))
}

func (e *AuditEvent) posixClose(pro types.ID, tr *pvm.Transaction) error {
	if e.ArgObjUUID1 == nil {
		return nil
	}
	f, err := tr.Declare(FileType, *e.ArgObjUUID1, nil)
	if err != nil {
		return err
	}
	return tr.SinkEnd(pro, f)
}

func (e *AuditEvent) posixSocket(pro types.ID, tr *pvm.Transaction) error {
	sUUID, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	_, err = tr.Declare(SocketType, sUUID, nil)
	return err
}

func (e *AuditEvent) posixListen(pro types.ID, tr *pvm.Transaction) error {
	sUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	_, err = tr.Declare(SocketType, sUUID, nil)
	return err
}

func (e *AuditEvent) posixBind(pro types.ID, tr *pvm.Transaction) error {
	sUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	s, err := tr.Declare(SocketType, sUUID, nil)
	if err != nil {
		return err
	}
	name, err := e.sockName()
	if err != nil {
		return err
	}
	return tr.Name(s, name)
}

func (e *AuditEvent) posixAccept(pro types.ID, tr *pvm.Transaction) error {
	lUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	rUUID, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	if _, err := tr.Declare(SocketType, lUUID, nil); err != nil {
		return err
	}
	r, err := tr.Declare(SocketType, rUUID, nil)
	if err != nil {
		return err
	}
	name, err := e.sockName()
	if err != nil {
		return err
	}
	return tr.Name(r, name)
}

func (e *AuditEvent) posixConnect(pro types.ID, tr *pvm.Transaction) error {
	sUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	s, err := tr.Declare(SocketType, sUUID, nil)
	if err != nil {
		return err
	}
	name, err := e.sockName()
	if err != nil {
		return err
	}
	return tr.Name(s, name)
}

func (e *AuditEvent) posixMmap(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if e.FDPath != nil {
		if err := tr.Name(f, types.PathName(*e.FDPath)); err != nil {
			return err
		}
	}
	if contains(e.ArgMemFlags, "PROT_WRITE") && !contains(e.ArgSharingFlags, "MAP_PRIVATE") {
		if err := tr.SinkStart(pro, f); err != nil {
			return err
		}
		// The sink versioned the mapping target; re-resolve so the read edge
		// attaches to the new version.
		if f, err = tr.Declare(FileType, fUUID, nil); err != nil {
			return err
		}
	}
	if contains(e.ArgMemFlags, "PROT_READ") {
		return tr.Source(pro, f)
	}
	return nil
}

func (e *AuditEvent) posixSocketpair(pro types.ID, tr *pvm.Transaction) error {
	u1, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	u2, err := e.uuidField(e.RetObjUUID2, "ret_objuuid2")
	if err != nil {
		return err
	}
	s1, err := tr.Declare(SocketType, u1, nil)
	if err != nil {
		return err
	}
	s2, err := tr.Declare(SocketType, u2, nil)
	if err != nil {
		return err
	}
	return tr.Connect(s1, s2, pvm.BiDirectional)
}

func (e *AuditEvent) posixPipe(pro types.ID, tr *pvm.Transaction) error {
	u1, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	u2, err := e.uuidField(e.RetObjUUID2, "ret_objuuid2")
	if err != nil {
		return err
	}
	p1, err := tr.Declare(PipeType, u1, nil)
	if err != nil {
		return err
	}
	p2, err := tr.Declare(PipeType, u2, nil)
	if err != nil {
		return err
	}
	return tr.Connect(p1, p2, pvm.BiDirectional)
}

// declareSocket declares the socket behind arg_objuuid1 and names it if a
// name can be derived.
func (e *AuditEvent) declareSocket(tr *pvm.Transaction) (types.ID, error) {
	sUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return types.NoID, err
	}
	s, err := tr.Declare(SocketType, sUUID, nil)
	if err != nil {
		return types.NoID, err
	}
	name, ok, err := e.optSockName()
	if err != nil {
		return types.NoID, err
	}
	if ok {
		if err := tr.Name(s, name); err != nil {
			return types.NoID, err
		}
	}
	return s, nil
}

func (e *AuditEvent) posixSend(pro types.ID, tr *pvm.Transaction) error {
	s, err := e.declareSocket(tr)
	if err != nil {
		return err
	}
	return tr.SinkStartNBytes(pro, s, int64(e.Retval))
}

func (e *AuditEvent) posixRecv(pro types.ID, tr *pvm.Transaction) error {
	s, err := e.declareSocket(tr)
	if err != nil {
		return err
	}
	return tr.SourceNBytes(pro, s, int64(e.Retval))
}

func (e *AuditEvent) posixChdir(pro types.ID, tr *pvm.Transaction) error {
	dUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	d, err := tr.Declare(FileType, dUUID, nil)
	if err != nil {
		return err
	}
	if e.UPath1 != nil {
		return tr.Name(d, types.PathName(*e.UPath1))
	}
	return nil
}

func (e *AuditEvent) posixChmod(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	fpath, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	if e.Mode == nil {
		return e.missing("mode")
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Meta(f, "mode", fmt.Sprintf("%o", *e.Mode)); err != nil {
		return err
	}
	if err := tr.Name(f, types.PathName(fpath)); err != nil {
		return err
	}
	return tr.Sink(pro, f)
}

func (e *AuditEvent) posixChown(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	fpath, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	argUID, err := e.int64Field(e.ArgUID, "arg_uid")
	if err != nil {
		return err
	}
	argGID, err := e.int64Field(e.ArgGID, "arg_gid")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Meta(f, "owner_uid", strconv.FormatInt(argUID, 10)); err != nil {
		return err
	}
	if err := tr.Meta(f, "owner_gid", strconv.FormatInt(argGID, 10)); err != nil {
		return err
	}
	if err := tr.Name(f, types.PathName(fpath)); err != nil {
		return err
	}
	return tr.Sink(pro, f)
}

func (e *AuditEvent) posixFchmod(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	if e.Mode == nil {
		return e.missing("mode")
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Meta(f, "mode", fmt.Sprintf("%o", *e.Mode)); err != nil {
		return err
	}
	return tr.SinkStart(pro, f)
}

func (e *AuditEvent) posixFchown(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	argUID, err := e.int64Field(e.ArgUID, "arg_uid")
	if err != nil {
		return err
	}
	argGID, err := e.int64Field(e.ArgGID, "arg_gid")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Meta(f, "owner_uid", strconv.FormatInt(argUID, 10)); err != nil {
		return err
	}
	if err := tr.Meta(f, "owner_gid", strconv.FormatInt(argGID, 10)); err != nil {
		return err
	}
	return tr.SinkStart(pro, f)
}

func (e *AuditEvent) posixOpenpt(pro types.ID, tr *pvm.Transaction) error {
	ttyUUID, err := e.uuidField(e.RetObjUUID1, "ret_objuuid1")
	if err != nil {
		return err
	}
	_, err = tr.Declare(PttyType, ttyUUID, nil)
	return err
}

func (e *AuditEvent) posixLink(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	upath1, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	upath2, err := e.stringField(e.UPath2, "upath2")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Name(f, types.PathName(upath1)); err != nil {
		return err
	}
	return tr.Name(f, types.PathName(upath2))
}

func (e *AuditEvent) posixRename(pro types.ID, tr *pvm.Transaction) error {
	srcUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	src, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	dst, err := e.stringField(e.UPath2, "upath2")
	if err != nil {
		return err
	}
	fsrc, err := tr.Declare(FileType, srcUUID, nil)
	if err != nil {
		return err
	}
	if err := tr.Unname(fsrc, types.PathName(src)); err != nil {
		return err
	}
	if e.ArgObjUUID2 != nil {
		fovr, err := tr.Declare(FileType, *e.ArgObjUUID2, nil)
		if err != nil {
			return err
		}
		if err := tr.Unname(fovr, types.PathName(dst)); err != nil {
			return err
		}
	}
	return tr.Name(fsrc, types.PathName(dst))
}

func (e *AuditEvent) posixUnlink(pro types.ID, tr *pvm.Transaction) error {
	fUUID, err := e.uuidField(e.ArgObjUUID1, "arg_objuuid1")
	if err != nil {
		return err
	}
	upath1, err := e.stringField(e.UPath1, "upath1")
	if err != nil {
		return err
	}
	f, err := tr.Declare(FileType, fUUID, nil)
	if err != nil {
		return err
	}
	return tr.Unname(f, types.PathName(upath1))
}

func (e *AuditEvent) posixSetuid(pro types.ID, tr *pvm.Transaction) error {
	uid, err := e.int64Field(e.ArgUID, "arg_uid")
	if err != nil {
		return err
	}
	val := strconv.FormatInt(uid, 10)
	for _, key := range []string{"euid", "ruid", "suid"} {
		if err := tr.Meta(pro, key, val); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSeteuid(pro types.ID, tr *pvm.Transaction) error {
	euid, err := e.int64Field(e.ArgEUID, "arg_euid")
	if err != nil {
		return err
	}
	return tr.Meta(pro, "euid", strconv.FormatInt(euid, 10))
}

func (e *AuditEvent) posixSetreuid(pro types.ID, tr *pvm.Transaction) error {
	ruid, err := e.int64Field(e.ArgRUID, "arg_ruid")
	if err != nil {
		return err
	}
	euid, err := e.int64Field(e.ArgEUID, "arg_euid")
	if err != nil {
		return err
	}
	if ruid != -1 {
		if err := tr.Meta(pro, "ruid", strconv.FormatInt(ruid, 10)); err != nil {
			return err
		}
	}
	if euid != -1 {
		if err := tr.Meta(pro, "euid", strconv.FormatInt(euid, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSetresuid(pro types.ID, tr *pvm.Transaction) error {
	ruid, err := e.int64Field(e.ArgRUID, "arg_ruid")
	if err != nil {
		return err
	}
	euid, err := e.int64Field(e.ArgEUID, "arg_euid")
	if err != nil {
		return err
	}
	suid, err := e.int64Field(e.ArgSUID, "arg_suid")
	if err != nil {
		return err
	}
	for key, v := range map[string]int64{"ruid": ruid, "euid": euid, "suid": suid} {
		if v == -1 {
			continue
		}
		if err := tr.Meta(pro, key, strconv.FormatInt(v, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSetgid(pro types.ID, tr *pvm.Transaction) error {
	gid, err := e.int64Field(e.ArgGID, "arg_gid")
	if err != nil {
		return err
	}
	val := strconv.FormatInt(gid, 10)
	for _, key := range []string{"egid", "rgid", "sgid"} {
		if err := tr.Meta(pro, key, val); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSetegid(pro types.ID, tr *pvm.Transaction) error {
	egid, err := e.int64Field(e.ArgEGID, "arg_egid")
	if err != nil {
		return err
	}
	return tr.Meta(pro, "egid", strconv.FormatInt(egid, 10))
}

func (e *AuditEvent) posixSetregid(pro types.ID, tr *pvm.Transaction) error {
	rgid, err := e.int64Field(e.ArgRGID, "arg_rgid")
	if err != nil {
		return err
	}
	egid, err := e.int64Field(e.ArgEGID, "arg_egid")
	if err != nil {
		return err
	}
	if rgid != -1 {
		if err := tr.Meta(pro, "rgid", strconv.FormatInt(rgid, 10)); err != nil {
			return err
		}
	}
	if egid != -1 {
		if err := tr.Meta(pro, "egid", strconv.FormatInt(egid, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSetresgid(pro types.ID, tr *pvm.Transaction) error {
	rgid, err := e.int64Field(e.ArgRGID, "arg_rgid")
	if err != nil {
		return err
	}
	egid, err := e.int64Field(e.ArgEGID, "arg_egid")
	if err != nil {
		return err
	}
	sgid, err := e.int64Field(e.ArgSGID, "arg_sgid")
	if err != nil {
		return err
	}
	for key, v := range map[string]int64{"rgid": rgid, "egid": egid, "sgid": sgid} {
		if v == -1 {
			continue
		}
		if err := tr.Meta(pro, key, strconv.FormatInt(v, 10)); err != nil {
			return err
		}
	}
	return nil
}

func (e *AuditEvent) posixSetlogin(pro types.ID, tr *pvm.Transaction) error {
	login, err := e.stringField(e.Login, "login")
	if err != nil {
		return err
	}
	return tr.Meta(pro, "login_name", login)
}

func contains(list []string, val string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}
