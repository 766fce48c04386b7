package correlate

import (
	"context"
	"errors"
	"testing"

	"github.com/Digni/winterm/internal/handlescan"
	"github.com/Digni/winterm/internal/winapi"
	"github.com/Digni/winterm/internal/winapi/winapitest"
)

const (
	shellPID = 5000
	job      = handlescan.JobObjectType
)

func newCorrelator(fake *winapitest.Fake) *Correlator {
	return New(fake, handlescan.New(fake, handlescan.Options{InitialSize: 256, Margin: 64}))
}

func assertNoLeaks(t *testing.T, fake *winapitest.Fake) {
	t.Helper()
	if fake.LiveHandles() != 0 {
		t.Fatalf("live handles = %d, want 0", fake.LiveHandles())
	}
	if fake.HandlesOpened != fake.HandlesClosed {
		t.Fatalf("handles opened = %d, closed = %d", fake.HandlesOpened, fake.HandlesClosed)
	}
	if fake.LiveBlocks() != 0 || fake.Allocs != fake.Frees {
		t.Fatalf("memory allocs = %d, frees = %d, live = %d", fake.Allocs, fake.Frees, fake.LiveBlocks())
	}
	if fake.BadReleases != 0 {
		t.Fatalf("bad releases = %d, want 0", fake.BadReleases)
	}
}

// fiftyEntryTable builds 50 records owned by 5 processes, 10 each. Job
// records appear in three of them; only pid 300's handle 0x88 refers to the
// shell process.
func fiftyEntryTable(fake *winapitest.Fake) {
	fake.AddProcess(shellPID, `C:\Windows\System32\cmd.exe`)

	owners := []struct {
		pid   uint32
		image string
	}{
		{100, `C:\Windows\System32\svchost.exe`},
		{200, `C:\Program Files\WindowsApps\OpenConsole.exe`},
		{300, `C:\Program Files\WindowsApps\OpenConsole.exe`},
		{400, `C:\Windows\explorer.exe`},
		{500, `C:\Program Files\PowerShell\7\pwsh.exe`},
	}
	jobs := map[uint32]map[winapi.Handle]winapitest.Object{
		// Another host: same handle value as the real match, different object.
		200: {0x88: winapitest.ProcessObject(777), 0x8c: "job:a"},
		300: {0x84: "job:b", 0x88: winapitest.ProcessObject(shellPID), 0x8c: "job:c"},
		// Holds the shell but has the wrong name.
		500: {0x90: winapitest.ProcessObject(shellPID)},
	}

	for _, o := range owners {
		p := fake.AddProcess(o.pid, o.image)
		var jobHandles []winapi.Handle
		for h, obj := range jobs[o.pid] {
			p.Handles[h] = obj
			jobHandles = append(jobHandles, h)
		}
		sortHandles(jobHandles)

		for i := 0; i < 10; i++ {
			e := handlescan.Entry{OwnerPID: o.pid, ObjectType: 37, Handle: winapi.Handle(0x400 + 4*i), Object: uintptr(o.pid)<<16 | uintptr(i)}
			if i < len(jobHandles) {
				e.ObjectType = job
				e.Handle = jobHandles[i]
			}
			fake.Table = append(fake.Table, e)
		}
	}
}

func sortHandles(hs []winapi.Handle) {
	for i := 1; i < len(hs); i++ {
		for j := i; j > 0 && hs[j] < hs[j-1]; j-- {
			hs[j], hs[j-1] = hs[j-1], hs[j]
		}
	}
}

func TestFindFiftyEntryScenario(t *testing.T) {
	fake := winapitest.New()
	fiftyEntryTable(fake)
	if len(fake.Table) != 50 {
		t.Fatalf("table has %d entries, want 50", len(fake.Table))
	}

	got, err := newCorrelator(fake).Find(context.Background(), "OpenConsole", shellPID)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	if got != 300 {
		t.Fatalf("Find() = %d, want 300", got)
	}
	for pid, n := range fake.Opens {
		if n > 1 {
			t.Fatalf("process %d opened %d times, want at most 1", pid, n)
		}
	}
	if fake.Opens[100] != 0 || fake.Opens[400] != 0 {
		t.Fatalf("owners without job handles were opened: %v", fake.Opens)
	}
	if fake.Opens[500] != 0 {
		t.Fatalf("owner after the match was opened: %v", fake.Opens)
	}
	assertNoLeaks(t, fake)
}

func TestFindRejectsSameHandleValueWithoutIdentity(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(shellPID, `cmd.exe`)
	fake.AddProcess(10, `OpenConsole.exe`).Handles[0x88] = winapitest.ProcessObject(999)
	fake.Table = []handlescan.Entry{{OwnerPID: 10, ObjectType: job, Handle: 0x88}}

	if got, err := newCorrelator(fake).Find(context.Background(), "OpenConsole", shellPID); err != nil || got != 0 {
		t.Fatalf("Find() = %d, %v; want 0, nil", got, err)
	}
	if fake.Compares != 1 {
		t.Fatalf("compares = %d, want 1", fake.Compares)
	}
	assertNoLeaks(t, fake)
}

func TestFindMatchesDifferentHandleValuesForSameObject(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(shellPID, `cmd.exe`)
	fake.AddProcess(10, `OpenConsole.exe`).Handles[0x1234] = winapitest.ProcessObject(shellPID)
	fake.Table = []handlescan.Entry{{OwnerPID: 10, ObjectType: job, Handle: 0x1234}}

	if got, err := newCorrelator(fake).Find(context.Background(), "openconsole", shellPID); err != nil || got != 10 {
		t.Fatalf("Find() = %d, %v; want 10, nil", got, err)
	}
	assertNoLeaks(t, fake)
}

func TestFindSkipsOwnersThatCannotBeOpened(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(shellPID, `cmd.exe`)
	denied := fake.AddProcess(10, `OpenConsole.exe`)
	denied.Denied = true
	denied.Handles[0x10] = winapitest.ProcessObject(shellPID)
	fake.AddProcess(20, `OpenConsole.exe`).Handles[0x20] = winapitest.ProcessObject(shellPID)
	fake.Table = []handlescan.Entry{
		{OwnerPID: 10, ObjectType: job, Handle: 0x10},
		{OwnerPID: 10, ObjectType: job, Handle: 0x14},
		{OwnerPID: 20, ObjectType: job, Handle: 0x1c},
		{OwnerPID: 20, ObjectType: job, Handle: 0x20},
	}

	if got, err := newCorrelator(fake).Find(context.Background(), "OpenConsole", shellPID); err != nil || got != 20 {
		t.Fatalf("Find() = %d, %v; want 20, nil", got, err)
	}
	if fake.Opens[10] != 1 || fake.Opens[20] != 1 {
		t.Fatalf("opens = %v, want one per owner", fake.Opens)
	}
	assertNoLeaks(t, fake)
}

func TestFindReturnsZeroWhenTargetCannotBeOpened(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(10, `OpenConsole.exe`).Handles[0x10] = winapitest.ProcessObject(shellPID)
	fake.Table = []handlescan.Entry{{OwnerPID: 10, ObjectType: job, Handle: 0x10}}

	if got, err := newCorrelator(fake).Find(context.Background(), "OpenConsole", shellPID); err != nil || got != 0 {
		t.Fatalf("Find() = %d, %v; want 0, nil", got, err)
	}
	if fake.Opens[10] != 0 {
		t.Fatalf("owner opened %d times, want 0", fake.Opens[10])
	}
	assertNoLeaks(t, fake)
}

func TestFindReturnsZeroOnEmptyScan(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(shellPID, `cmd.exe`)

	if got, err := newCorrelator(fake).Find(context.Background(), "OpenConsole", shellPID); err != nil || got != 0 {
		t.Fatalf("Find() = %d, %v; want 0, nil", got, err)
	}
	if fake.Opens[shellPID] != 0 {
		t.Fatal("target opened although the scan was empty")
	}
	assertNoLeaks(t, fake)
}

func TestFindStopsWhenContextCancelled(t *testing.T) {
	fake := winapitest.New()
	fiftyEntryTable(fake)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := newCorrelator(fake).Find(ctx, "OpenConsole", shellPID)
	if got != 0 || !errors.Is(err, context.Canceled) {
		t.Fatalf("Find() = %d, %v; want 0, context.Canceled", got, err)
	}
	assertNoLeaks(t, fake)
}

// cancellingScanner cancels the search while the table is being read.
type cancellingScanner struct {
	Scanner
	cancel context.CancelFunc
}

func (s cancellingScanner) Scan(objectType uint8) []handlescan.Entry {
	s.cancel()
	return s.Scanner.Scan(objectType)
}

func TestLocateHostReportsCancellation(t *testing.T) {
	fake := winapitest.New()
	fiftyEntryTable(fake)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New(fake, cancellingScanner{Scanner: handlescan.New(fake, handlescan.Options{}), cancel: cancel})
	got, err := c.LocateHost(ctx, shellPID)
	if got != 0 || !errors.Is(err, context.Canceled) {
		t.Fatalf("LocateHost() = %d, %v; want 0, context.Canceled", got, err)
	}
	assertNoLeaks(t, fake)
}

type stubScanner []handlescan.Entry

func (s stubScanner) Scan(objectType uint8) []handlescan.Entry {
	var out []handlescan.Entry
	for _, e := range s {
		if e.ObjectType == objectType {
			out = append(out, e)
		}
	}
	return out
}

func TestLocateHostUsesConfiguredName(t *testing.T) {
	fake := winapitest.New()
	fake.AddProcess(shellPID, `cmd.exe`)
	fake.AddProcess(10, `OpenConsole.exe`).Handles[0x10] = winapitest.ProcessObject(shellPID)
	fake.AddProcess(20, `conpty-host.exe`).Handles[0x10] = winapitest.ProcessObject(shellPID)
	scanner := stubScanner{
		{OwnerPID: 10, ObjectType: 9, Handle: 0x10},
		{OwnerPID: 20, ObjectType: 9, Handle: 0x10},
	}

	c := New(fake, scanner, WithHostName("conpty-host"), WithObjectType(9))
	got, err := c.LocateHost(context.Background(), shellPID)
	if err != nil {
		t.Fatalf("LocateHost() error = %v", err)
	}
	if got != 20 {
		t.Fatalf("LocateHost() = %d, want 20", got)
	}
	assertNoLeaks(t, fake)
}
