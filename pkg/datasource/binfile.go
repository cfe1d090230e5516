package datasource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/exp/mmap"

	"github.com/icarus-trading/icarus/pkg/common"
	"github.com/icarus-trading/icarus/pkg/utility"
	"github.com/icarus-trading/icarus/pkg/utility/fixed"
)

var ErrEndOfFile = errors.New("end of tick file")

// TickRecord is the on-disk layout of one recorded tick. The struct must
// stay free of padding, its raw bytes are the file format.
type TickRecord struct {
	UnixNano int64
	Price    float64
	Volume   float64
}

// BinaryFile replays a memory-mapped file of fixed-size tick records for a
// single symbol.
type BinaryFile struct {
	path   string
	symbol string

	reader     *mmap.ReaderAt
	bufferPool *sync.Pool
}

func NewBinaryFile(path, symbol string) *BinaryFile {
	return &BinaryFile{
		path:   path,
		symbol: symbol,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buffer := make([]byte, int(unsafe.Sizeof(TickRecord{})))
				return &buffer
			},
		},
	}
}

func (b *BinaryFile) Name() string { return "binary-file" }

func (b *BinaryFile) Open() error {
	var err error
	b.reader, err = mmap.Open(b.path)
	if err != nil {
		return fmt.Errorf("unable to open tick file %q: %w", b.path, err)
	}
	return nil
}

func (b *BinaryFile) Close() {
	if b.reader != nil {
		_ = b.reader.Close()
	}
}

func (b *BinaryFile) readAt(index int64, record *TickRecord) error {
	buffer := b.bufferPool.Get().(*[]byte)
	defer b.bufferPool.Put(buffer)

	offset := index * int64(len(*buffer))

	n, err := b.reader.ReadAt(*buffer, offset)
	if err != nil && err != io.EOF {
		return fmt.Errorf("unable to read: %w", err)
	}
	if n < len(*buffer) {
		return ErrEndOfFile
	}

	*record = *(*TickRecord)(unsafe.Pointer(&(*buffer)[0])) // #nosec G103
	return nil
}

// EntryCount returns how many records the file holds.
func (b *BinaryFile) EntryCount() (int64, error) {
	recordSize := int64(unsafe.Sizeof(TickRecord{}))

	fileInfo, err := os.Stat(b.path)
	if err != nil {
		return 0, fmt.Errorf("unable to stat tick file %q: %w", b.path, err)
	}

	totalSize := fileInfo.Size()
	if totalSize%recordSize != 0 {
		return 0, fmt.Errorf("file size is not a multiple of record size")
	}
	return totalSize / recordSize, nil
}

func (b *BinaryFile) Stream(ctx context.Context, emit func(common.Tick) error) error {
	for index := int64(0); ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		var record TickRecord
		if err := b.readAt(index, &record); err != nil {
			if errors.Is(err, ErrEndOfFile) {
				return nil
			}
			return err
		}

		tick := common.Tick{
			Price:       fixed.FromFloat64(record.Price),
			Volume:      fixed.FromFloat64(record.Volume),
			Source:      b.Name(),
			Symbol:      b.symbol,
			ExecutionID: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   time.Unix(0, record.UnixNano),
		}
		if err := emit(tick); err != nil {
			return err
		}
	}
}
