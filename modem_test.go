package serialstream

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModemControl(t *testing.T) {
	t.Run("sets and reads lines on the open handle", func(t *testing.T) {
		dev := newFakeDevice()
		dev.signals.CTS = true
		s := openStream(t, dev)
		ctx := testContext(t)

		require.NoError(t, s.SetDTR(ctx, true))
		require.NoError(t, s.SetRTS(ctx, true))
		sig, err := s.ModemSignals(ctx)
		require.NoError(t, err)
		assert.Equal(t, ModemSignals{CTS: true, DTR: true, RTS: true}, sig)

		require.NoError(t, s.SetDTR(ctx, false))
		sig, err = s.ModemSignals(ctx)
		require.NoError(t, err)
		assert.False(t, sig.DTR)
		assert.Equal(t, Handle(1), dev.modemHandle)
	})

	t.Run("device errors are wrapped", func(t *testing.T) {
		dev := newFakeDevice()
		boom := errors.New("ioctl failed")
		dev.modemErr = boom
		s := openStream(t, dev)
		ctx := testContext(t)

		assert.ErrorIs(t, s.SetDTR(ctx, true), boom)
		assert.ErrorIs(t, s.SetRTS(ctx, true), boom)
		_, err := s.ModemSignals(ctx)
		assert.ErrorIs(t, err, boom)
	})

	tests := []struct {
		name string
		dev  func() Device
		open bool
		want error
	}{
		{
			name: "closed stream",
			dev:  func() Device { return newFakeDevice() },
			want: ErrPortClosed,
		},
		{
			name: "device without modem lines",
			dev:  func() Device { return noCloseDevice{newFakeDevice()} },
			open: true,
			want: ErrNotSupported,
		},
		{
			name: "closed device without modem lines",
			dev:  func() Device { return noCloseDevice{newFakeDevice()} },
			want: ErrNotSupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStream(t, tt.dev())
			ctx := context.Background()
			if tt.open {
				require.NoError(t, s.Open(ctx))
			}

			assert.ErrorIs(t, s.SetDTR(ctx, true), tt.want)
			assert.ErrorIs(t, s.SetRTS(ctx, false), tt.want)
			_, err := s.ModemSignals(ctx)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
