package attgatt

import (
	"context"
	"testing"
	"time"
)

// These tests exercise the concrete byte-level scenarios: MTU exchange,
// Read By Group Type across three services, invalid handle, Find Information, a
// tokened characteristic write with its event, an indication/confirmation
// round trip, and Prepare/Execute Write commit and cancel.

func scenarioRegistration() (*Database, map[Handle]Token, map[Token]Handle) {
	r := NewRegistration()
	r.AddPrimaryService(UUID16(0x1800))                                 // handle 1
	r.AddCharacteristicWithToken("name", UUID16(0x2A00), []byte("dev"), // decl 2, value 3
		CPRead|CPWrite)
	r.AddPrimaryService(UUID16(0x180F)) // handle 4
	r.AddCharacteristic(UUID16(0x2A19), []byte{100}, CPRead)
	r.AddPrimaryService(UUID16(0x1822)) // handle 7
	r.AddCharacteristic(UUID16(0x2A38), []byte{1}, CPRead)
	return r.Build()
}

func TestScenarioExchangeMTU(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x02, 0x17, 0x00})
	got := mustRead(t, peer)
	want := []byte{0x03, 0x17, 0x00}
	if !bytesEqual(got, want) {
		t.Fatalf("Exchange MTU response = % x, want % x", got, want)
	}
}

func TestScenarioReadByGroupTypeThreeServices(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x10, 0x01, 0x00, 0xFF, 0xFF, 0x00, 0x28})
	got := mustRead(t, peer)
	want := []byte{
		0x11, 0x06,
		0x01, 0x00, 0x03, 0x00, 0x00, 0x18,
		0x04, 0x00, 0x06, 0x00, 0x0F, 0x18,
		0x07, 0x00, 0x09, 0x00, 0x22, 0x18,
	}
	if !bytesEqual(got, want) {
		t.Fatalf("Read By Group Type response = % x, want % x", got, want)
	}
}

func TestScenarioReadInvalidHandle(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x0A, 0x00, 0x00})
	got := mustRead(t, peer)
	want := []byte{0x01, 0x0A, 0x00, 0x00, 0x01}
	if !bytesEqual(got, want) {
		t.Fatalf("Read invalid handle response = % x, want % x", got, want)
	}
}

func TestScenarioFindInformationSingleCCC(t *testing.T) {
	r := NewRegistration()
	r.AddPrimaryService(UUID16(0x1800))
	for i := 0; i < 11; i++ {
		r.AddDescriptor(UUID16(0x2901), []byte("pad"), false)
	}
	r.AddCharacteristicWithToken("battery", UUID16(0x2A19), []byte{1}, CPRead|CPNotify)
	db, wt, nh := r.Build()

	handles := db.Handles()
	cccHandle := handles[len(handles)-1]
	if cccHandle != Handle(0x000F) {
		t.Fatalf("CCC handle = %s, want 0x000F (fixture needs adjusting)", cccHandle)
	}

	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x04, 0x0F, 0x00, 0x0F, 0x00})
	got := mustRead(t, peer)
	want := []byte{0x05, 0x01, 0x0F, 0x00, 0x02, 0x29}
	if !bytesEqual(got, want) {
		t.Fatalf("Find Information response = % x, want % x", got, want)
	}
}

func TestScenarioTokenedWriteEmitsEvent(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	events := c.Events()

	mustWrite(t, peer, []byte{0x12, 0x03, 0x00, 0x68, 0x69})
	got := mustRead(t, peer)
	if !bytesEqual(got, []byte{0x13}) {
		t.Fatalf("Write response = % x, want 13", got)
	}

	select {
	case ev := <-events:
		if ev.Token != "name" || string(ev.Value) != "hi" {
			t.Fatalf("event = %+v, want Token=name Value=hi", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no write event published")
	}

	mustWrite(t, peer, []byte{0x0A, 0x03, 0x00})
	got = mustRead(t, peer)
	want := []byte{0x0B, 0x68, 0x69}
	if !bytesEqual(got, want) {
		t.Fatalf("Read after tokened write = % x, want % x", got, want)
	}
}

func TestScenarioIndicationConfirmationRoundTrip(t *testing.T) {
	// Built directly (rather than through Registration, which always puts
	// a characteristic declaration ahead of its value) so the indicated
	// handle lands on 0x0001, matching the scenario's wire bytes.
	indHandle := Handle(1)
	attr := newCharacteristicValueAttribute(indHandle, UUID16(0x2A00), []byte("ok"), PermReadable)
	db := newDatabase([]*Attribute{attr})
	wt := map[Handle]Token{}
	nh := map[Token]Handle{"status": indHandle}

	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	indCtx, cancelInd := context.WithTimeout(context.Background(), time.Second)
	defer cancelInd()
	resultCh := make(chan error, 1)
	go func() { resultCh <- c.Indicate(indCtx, "status", []byte("ok")) }()

	got := mustRead(t, peer)
	want := []byte{0x1D, 0x01, 0x00, 0x6F, 0x6B}
	if !bytesEqual(got, want) {
		t.Fatalf("indication = % x, want % x", got, want)
	}

	mustWrite(t, peer, []byte{0x1E})

	select {
	case err := <-resultCh:
		if err != nil {
			t.Fatalf("Indicate: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Indicate did not resolve after confirmation")
	}
}

func TestScenarioPrepareExecuteWriteCommit(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x16, 0x03, 0x00, 0x00, 0x00, 0x68, 0x69})
	got := mustRead(t, peer)
	want := []byte{0x17, 0x03, 0x00, 0x00, 0x00, 0x68, 0x69}
	if !bytesEqual(got, want) {
		t.Fatalf("Prepare Write response = % x, want % x", got, want)
	}

	mustWrite(t, peer, []byte{0x18, 0x01})
	got = mustRead(t, peer)
	if !bytesEqual(got, []byte{0x19}) {
		t.Fatalf("Execute Write response = % x, want 19", got)
	}

	mustWrite(t, peer, []byte{0x0A, 0x03, 0x00})
	got = mustRead(t, peer)
	want = []byte{0x0B, 0x68, 0x69}
	if !bytesEqual(got, want) {
		t.Fatalf("Read after Execute Write commit = % x, want % x", got, want)
	}
}

func TestScenarioPrepareExecuteWriteCancel(t *testing.T) {
	db, wt, nh := scenarioRegistration()
	serverSide, peer := NewPipe()
	c := NewConnection(serverSide, db, wt, nh, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	defer func() { cancel(); <-done }()

	mustWrite(t, peer, []byte{0x16, 0x03, 0x00, 0x00, 0x00, 0x68, 0x69})
	mustRead(t, peer)

	mustWrite(t, peer, []byte{0x18, 0x00})
	got := mustRead(t, peer)
	if !bytesEqual(got, []byte{0x19}) {
		t.Fatalf("Execute Write (cancel) response = % x, want 19", got)
	}

	mustWrite(t, peer, []byte{0x0A, 0x03, 0x00})
	got = mustRead(t, peer)
	want := []byte{0x0B, 'd', 'e', 'v'}
	if !bytesEqual(got, want) {
		t.Fatalf("Read after Execute Write cancel = % x, want unchanged % x", got, want)
	}
}
