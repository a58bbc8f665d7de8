package irc

const chanCapacity = 64

// Conn is a line-oriented connection to a chat server.
type Conn interface {
	// ReadLine returns the next line, without CRLF.
	ReadLine() (string, error)
	// WriteLine sends a line, which must not contain CRLF.
	WriteLine(line string) error
	// Close closes the connection.  It can be called more than once.
	Close() error
}

// ChanInOut starts the reader and writer goroutines of conn.
//
// in is closed when reading fails, after which done receives the error that
// stopped the reader.  Closing out makes the writer close conn.
func ChanInOut(conn Conn) (in <-chan string, out chan<- string, done <-chan error) {
	in_ := make(chan string, chanCapacity)
	out_ := make(chan string, chanCapacity)
	done_ := make(chan error, 1)

	go func() {
		var err error
		for {
			var line string
			line, err = conn.ReadLine()
			if err != nil {
				break
			}
			in_ <- line
		}
		close(in_)
		done_ <- err
		close(done_)
	}()

	go func() {
		for line := range out_ {
			err := conn.WriteLine(line)
			if err != nil {
				break
			}
		}
		_ = conn.Close()
		for range out_ {
		}
	}()

	return in_, out_, done_
}
