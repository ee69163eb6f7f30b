package channel

import (
	"testing"
	"time"

	"github.com/hemlang/hemlock/internal/value"
)

func TestBufferedSendRecv(t *testing.T) {
	ch := New(2)
	c := ch.Heap.(*ChannelObj)
	if err := c.Send(value.I32(1)); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(value.I32(2)); err != nil {
		t.Fatal(err)
	}
	v, ok := c.Recv()
	if !ok || v.AsI32() != 1 {
		t.Fatalf("Recv = %v,%v want 1,true", v, ok)
	}
}

func TestRendezvousSendBlocksUntilRecv(t *testing.T) {
	ch := New(0)
	c := ch.Heap.(*ChannelObj)
	done := make(chan error, 1)
	go func() { done <- c.Send(value.I32(42)) }()

	time.Sleep(10 * time.Millisecond) // give the sender time to block
	v, ok := c.Recv()
	if !ok || v.AsI32() != 42 {
		t.Fatalf("Recv = %v,%v want 42,true", v, ok)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestCloseBroadcastWakesReceiver(t *testing.T) {
	ch := New(1)
	c := ch.Heap.(*ChannelObj)
	done := make(chan bool, 1)
	go func() {
		_, ok := c.Recv()
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	c.Close()
	if ok := <-done; ok {
		t.Fatal("expected Recv to report closed (false) after Close")
	}
}

func TestSendTimeoutExpires(t *testing.T) {
	ch := New(1)
	c := ch.Heap.(*ChannelObj)
	if err := c.Send(value.I32(1)); err != nil {
		t.Fatal(err)
	}
	err := c.SendTimeout(value.I32(2), 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error on full buffered channel")
	}
}

// Equivalent to: let ch = channel(2); ch.send("a"); ch.send("b"); ch.close();
// print(ch.recv()); print(ch.recv()); print(ch.recv()); -> "a", "b", null.
func TestScenarioBufferedSendCloseDrain(t *testing.T) {
	ch := New(2)
	c := ch.Heap.(*ChannelObj)
	if err := c.Send(value.NewString("a")); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(value.NewString("b")); err != nil {
		t.Fatal(err)
	}
	c.Close()

	v, ok := c.Recv()
	if !ok || v.Heap.(*value.StringObj).Bytes() != "a" {
		t.Fatalf("first Recv = %v,%v want \"a\",true", v, ok)
	}
	v, ok = c.Recv()
	if !ok || v.Heap.(*value.StringObj).Bytes() != "b" {
		t.Fatalf("second Recv = %v,%v want \"b\",true", v, ok)
	}
	_, ok = c.Recv()
	if ok {
		t.Fatal("expected third Recv on a drained, closed channel to report false (null)")
	}
}

func TestPollReportsReadiness(t *testing.T) {
	ch := New(1)
	c := ch.Heap.(*ChannelObj)
	if c.Poll() {
		t.Fatal("expected Poll false on empty channel")
	}
	c.Send(value.I32(1))
	if !c.Poll() {
		t.Fatal("expected Poll true after send")
	}
}
