// Command doginals is the CLI entrypoint tying the chain walker, content
// store, and inscription builder/broadcaster/bulk-mint controller into a
// set of operator-facing subcommands: decode an inscription id, inscribe a
// file, bulk-mint many copies, or resume a pending broadcast journal.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	sharedtypes "github.com/H3imdall-dev/Dogecoin-Tools/doginals"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/broadcaster"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/builder"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/bulkmint"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/config"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/decoder"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/deps"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/progress"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/rpc"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/runlog"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/store"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/wallet"
	"github.com/H3imdall-dev/Dogecoin-Tools/internal/walker"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app bundles every service the subcommands below drive, wired once in run.
type app struct {
	cfg     *config.Config
	rpc     *rpc.Client
	st      *store.Store
	tracker *progress.Tracker
	wlt     *wallet.Wallet
	bld     *builder.Builder
	bcast   *broadcaster.Broadcaster
	walletPath string
}

func run(argv []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("usage: doginals <decode|inscribe|bulkmint|resume> [flags]")
	}
	subcmd, rest := argv[0], argv[1:]

	cfg, err := config.Load(rest)
	if err != nil {
		return err
	}

	if err := initLogRotator(filepath.Join(cfg.WalletDir, "doginals.log")); err != nil {
		fmt.Fprintf(os.Stderr, "warning: rotating log file disabled: %v\n", err)
	}
	useLoggers()

	params, err := cfg.Params()
	if err != nil {
		return err
	}

	client, err := rpc.New(rpc.Config{
		Host: cfg.RPCHost,
		User: cfg.RPCUser,
		Pass: cfg.RPCPass,
	})
	if err != nil {
		return sharedtypes.Newf(sharedtypes.KindRPCUnavailable, err, "dial node")
	}
	defer client.Shutdown()

	st, err := store.Open(cfg.ContentDir)
	if err != nil {
		return err
	}

	walletPath := filepath.Join(cfg.WalletDir, ".wallet.json")
	bcast := broadcaster.New(client, walletPath)

	// Per §4.8: on process start, if a pending journal exists the
	// process only rebroadcasts it and exits, regardless of the
	// requested subcommand.
	if pending, err := bcast.HasPending(); err != nil {
		return err
	} else if pending {
		log.Infof("pending broadcast journal found, resuming before any other work")
		result, err := bcast.ResumePending(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("resumed pending broadcast: inscription txid %s\n", result.InscriptionTxid)
		return nil
	}

	a := &app{
		cfg:        cfg,
		rpc:        client,
		st:         st,
		tracker:    progress.New(),
		walletPath: walletPath,
		bcast:      bcast,
	}

	if _, err := os.Stat(walletPath); err == nil {
		w, err := wallet.Load(walletPath, params)
		if err != nil {
			return err
		}
		a.wlt = w
		a.bld = builder.New(w, params)
	}

	switch subcmd {
	case "decode":
		return a.decode(rest)
	case "inscribe":
		return a.inscribe(rest)
	case "bulkmint":
		return a.bulkMint(rest)
	case "resume":
		fmt.Println("no pending journal found; nothing to resume")
		return nil
	default:
		return fmt.Errorf("unknown subcommand %q", subcmd)
	}
}

// decode materializes a single inscription id (txid or txidiN), writing the
// decoded content into the store and printing its byte count and kind.
func (a *app) decode(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: doginals decode <id>")
	}
	id, err := sharedtypes.ParseID(args[0])
	if err != nil {
		return err
	}

	w := walker.New(a.rpc, a.cfg.DepthBlocks, int(a.cfg.MaxHops))
	dec := decoder.New(w, a.st, a.tracker)

	data, kind, err := dec.Materialize(context.Background(), id, deps.MaterializeOptions{})
	if err != nil {
		return err
	}
	fmt.Printf("decoded %s: %d bytes, kind=%v\n", id.String(), len(data), kind)
	return nil
}

// inscribe builds and broadcasts a single-file inscription chain to
// destAddr, appending a run record under contentDir.
func (a *app) inscribe(args []string) error {
	if a.wlt == nil {
		return fmt.Errorf("no wallet at %s; initialize one first", a.walletPath)
	}
	if len(args) < 2 {
		return fmt.Errorf("usage: doginals inscribe <file> <destAddr> [contentType]")
	}
	filePath, destAddrStr := args[0], args[1]
	contentType := "application/octet-stream"
	if len(args) > 2 {
		contentType = args[2]
	}

	payload, err := os.ReadFile(filePath)
	if err != nil {
		return sharedtypes.Newf(sharedtypes.KindIOError, err, "read %s", filePath)
	}

	params, err := a.cfg.Params()
	if err != nil {
		return err
	}
	destAddr, err := btcutil.DecodeAddress(destAddrStr, params)
	if err != nil {
		return sharedtypes.Newf(sharedtypes.KindInvalidInput, err, "decode address %s", destAddrStr)
	}

	run, err := runlog.Start(a.cfg.ContentDir, "inscribe", destAddrStr, 1, nil, time.Now())
	if err != nil {
		return err
	}

	result, err := a.bld.Build(context.Background(), destAddr, contentType, payload, a.cfg.FeeRate)
	if err != nil {
		_ = run.Finish(time.Now(), nil, err)
		return err
	}

	bres, err := a.bcast.Broadcast(context.Background(), result.Transactions, true)
	if err != nil {
		_ = run.Finish(time.Now(), nil, err)
		return err
	}

	if err := run.RecordSuccess(runlog.Result{
		File:          filePath,
		InscriptionID: result.RevealTxid + "i0",
		Mode:          runlog.ModeNormal,
		Txid:          bres.InscriptionTxid,
	}); err != nil {
		return err
	}
	if err := run.Finish(time.Now(), nil, nil); err != nil {
		return err
	}

	fmt.Printf("inscribed %s: inscription id %si0, txid %s\n", filePath, result.RevealTxid, bres.InscriptionTxid)
	return nil
}

// bulkMint issues count copies of file to one or more recipients, driving
// the bulk mint controller's wave state machine end to end.
//
//	doginals bulkmint <file> <contentType> <addr1>:<count1> [<addr2>:<count2> ...]
func (a *app) bulkMint(args []string) error {
	if a.wlt == nil {
		return fmt.Errorf("no wallet at %s; initialize one first", a.walletPath)
	}
	if len(args) < 3 {
		return fmt.Errorf("usage: doginals bulkmint <file> <contentType> <addr:count> [...]")
	}
	filePath, contentType := args[0], args[1]
	payload, err := os.ReadFile(filePath)
	if err != nil {
		return sharedtypes.Newf(sharedtypes.KindIOError, err, "read %s", filePath)
	}

	jobs, err := parseJobs(args[2:])
	if err != nil {
		return err
	}

	params, err := a.cfg.Params()
	if err != nil {
		return err
	}

	minter := &fileMinter{
		bld:          a.bld,
		bcast:        a.bcast,
		params:       params,
		contentType:  contentType,
		payload:      payload,
		feeRatePerKB: a.cfg.FeeRate,
	}

	ctrl := bulkmint.New(minter, a.bcast, a.rpc, a.wlt, a.wlt.Address().EncodeAddress())

	grandTotal := 0
	for _, j := range jobs {
		grandTotal += j.Count
	}
	run, err := runlog.Start(a.cfg.ContentDir, "bulkmint", jobs[0].Address, grandTotal, nil, time.Now())
	if err != nil {
		return err
	}

	bulkJobs := make([]bulkmint.Job, len(jobs))
	for i, j := range jobs {
		bulkJobs[i] = bulkmint.Job{Address: j.Address, Count: j.Count}
	}

	report, err := ctrl.RunJobs(context.Background(), bulkJobs)
	if err != nil {
		_ = run.Finish(time.Now(), nil, err)
		return err
	}

	for _, txid := range report.Txids {
		_ = run.RecordSuccess(runlog.Result{
			File: filePath,
			Mode: runlog.ModeNormal,
			Txid: txid,
		})
	}
	if err := run.Finish(time.Now(), nil, nil); err != nil {
		return err
	}

	fmt.Printf("bulk mint complete: %d/%d inscriptions\n", report.Completed, report.GrandTotal)
	return nil
}

type recipientJob struct {
	Address string
	Count   int
}

func parseJobs(args []string) ([]recipientJob, error) {
	jobs := make([]recipientJob, 0, len(args))
	for _, arg := range args {
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid addr:count %q", arg)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil || count <= 0 {
			return nil, fmt.Errorf("invalid count in %q", arg)
		}
		jobs = append(jobs, recipientJob{Address: parts[0], Count: count})
	}
	return jobs, nil
}

// fileMinter adapts the builder and broadcaster into bulkmint.Minter,
// building and broadcasting one fixed-content inscription per call.
type fileMinter struct {
	bld          *builder.Builder
	bcast        *broadcaster.Broadcaster
	params       *chaincfg.Params
	contentType  string
	payload      []byte
	feeRatePerKB int64
}

func (m *fileMinter) MintOne(ctx context.Context, destAddr string) (string, error) {
	addr, err := btcutil.DecodeAddress(destAddr, m.params)
	if err != nil {
		return "", sharedtypes.Newf(sharedtypes.KindInvalidInput, err, "decode address %s", destAddr)
	}
	result, err := m.bld.Build(ctx, addr, m.contentType, m.payload, m.feeRatePerKB)
	if err != nil {
		return "", err
	}
	bres, err := m.bcast.Broadcast(ctx, result.Transactions, true)
	if err != nil {
		return "", err
	}
	return bres.InscriptionTxid, nil
}
