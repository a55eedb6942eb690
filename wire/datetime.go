package wire

import (
	"strings"
	"time"
)

var monthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}

func monthByName(name string) (time.Month, bool) {
	for i, m := range monthNames {
		if strings.EqualFold(name, m) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// ReadDate consumes a date in the 25-Jun-1994 form, optionally quoted.
// The month name is matched case-insensitively; out-of-range components
// are grammar constraint violations, never silent wraps.
func (r *Reader) ReadDate() (time.Time, error) {
	sp := r.Savepoint()
	quoted := false
	if b, err := r.PeekByte(); err != nil {
		return time.Time{}, err
	} else if b == '"' {
		quoted = true
		r.Consume(1)
	}

	t, err := r.readDateBody(sp)
	if err != nil {
		return time.Time{}, err
	}
	if quoted {
		if err := r.ExpectByte('"'); err != nil {
			if err == ErrNeedMore {
				r.Restore(sp)
				return time.Time{}, err
			}
			return time.Time{}, protocolErr(r.rest(), "unclosed quoted date")
		}
	}
	return t, nil
}

func (r *Reader) readDateBody(sp int) (time.Time, error) {
	day, err := r.readFixedNumber(sp, 1, 2)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.expectDash(sp); err != nil {
		return time.Time{}, err
	}
	monStr, err := r.readMonthName(sp)
	if err != nil {
		return time.Time{}, err
	}
	mon, ok := monthByName(monStr)
	if !ok {
		return time.Time{}, grammarErr([]byte(monStr), "invalid month %q", monStr)
	}
	if err := r.expectDash(sp); err != nil {
		return time.Time{}, err
	}
	year, err := r.readFixedNumber(sp, 4, 4)
	if err != nil {
		return time.Time{}, err
	}
	if day < 1 || day > 31 {
		return time.Time{}, grammarErr(nil, "day %d out of range", day)
	}
	return time.Date(year, mon, day, 0, 0, 0, 0, time.UTC), nil
}

// ReadDateTime consumes a quoted date-time:
// "25-Jun-1994 01:02:03 +0100", with a space-padded single-digit day.
func (r *Reader) ReadDateTime() (time.Time, error) {
	sp := r.Savepoint()
	if err := r.ExpectByte('"'); err != nil {
		return time.Time{}, err
	}

	// fixed-width day: SP digit or two digits
	b, err := r.PeekByte()
	if err != nil {
		r.Restore(sp)
		return time.Time{}, err
	}
	var day int
	if b == ' ' {
		r.Consume(1)
		day, err = r.readFixedNumber(sp, 1, 1)
	} else {
		day, err = r.readFixedNumber(sp, 2, 2)
	}
	if err != nil {
		return time.Time{}, err
	}
	if err := r.expectDash(sp); err != nil {
		return time.Time{}, err
	}
	monStr, err := r.readMonthName(sp)
	if err != nil {
		return time.Time{}, err
	}
	mon, ok := monthByName(monStr)
	if !ok {
		return time.Time{}, grammarErr([]byte(monStr), "invalid month %q", monStr)
	}
	if err := r.expectDash(sp); err != nil {
		return time.Time{}, err
	}
	year, err := r.readFixedNumber(sp, 4, 4)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.spOr(sp); err != nil {
		return time.Time{}, err
	}
	hour, err := r.readFixedNumber(sp, 2, 2)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.expectColon(sp); err != nil {
		return time.Time{}, err
	}
	min, err := r.readFixedNumber(sp, 2, 2)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.expectColon(sp); err != nil {
		return time.Time{}, err
	}
	sec, err := r.readFixedNumber(sp, 2, 2)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.spOr(sp); err != nil {
		return time.Time{}, err
	}

	signByte, err := r.PeekByte()
	if err != nil {
		r.Restore(sp)
		return time.Time{}, err
	}
	if signByte != '+' && signByte != '-' {
		return time.Time{}, protocolErr(r.rest(), "expected zone sign")
	}
	r.Consume(1)
	zh, err := r.readFixedNumber(sp, 2, 2)
	if err != nil {
		return time.Time{}, err
	}
	zm, err := r.readFixedNumber(sp, 2, 2)
	if err != nil {
		return time.Time{}, err
	}
	if err := r.ExpectByte('"'); err != nil {
		if err == ErrNeedMore {
			r.Restore(sp)
			return time.Time{}, err
		}
		return time.Time{}, protocolErr(r.rest(), "unclosed quoted date-time")
	}

	if day < 1 || day > 31 {
		return time.Time{}, grammarErr(nil, "day %d out of range", day)
	}
	if hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, grammarErr(nil, "time %02d:%02d:%02d out of range", hour, min, sec)
	}
	zoneMinutes := zh*60 + zm
	if zm > 59 || zoneMinutes > 959 {
		return time.Time{}, grammarErr(nil, "zone out of range")
	}
	if signByte == '-' {
		zoneMinutes = -zoneMinutes
	}
	loc := time.FixedZone("", zoneMinutes*60)
	return time.Date(year, mon, day, hour, min, sec, 0, loc), nil
}

func (r *Reader) readFixedNumber(sp, minDigits, maxDigits int) (int, error) {
	n := 0
	digits := 0
	for digits < maxDigits {
		if r.Readable() == 0 {
			r.Restore(sp)
			return 0, ErrNeedMore
		}
		b := r.buf[r.pos]
		if !IsDigit(b) {
			break
		}
		n = n*10 + int(b-'0')
		digits++
		r.pos++
	}
	if digits < minDigits {
		return 0, protocolErr(r.rest(), "expected digit")
	}
	return n, nil
}

func (r *Reader) readMonthName(sp int) (string, error) {
	if r.Readable() < 3 {
		r.Restore(sp)
		return "", ErrNeedMore
	}
	s := string(r.buf[r.pos : r.pos+3])
	r.Consume(3)
	return s, nil
}

func (r *Reader) expectDash(sp int) error {
	return r.expectFatal(sp, '-')
}

func (r *Reader) expectColon(sp int) error {
	return r.expectFatal(sp, ':')
}

func (r *Reader) spOr(sp int) error {
	return r.expectFatal(sp, ' ')
}

// expectFatal consumes the expected byte; a different byte is a protocol
// violation because the caller has already committed to the production.
func (r *Reader) expectFatal(sp int, expected byte) error {
	if r.Readable() == 0 {
		r.Restore(sp)
		return ErrNeedMore
	}
	if r.buf[r.pos] != expected {
		return protocolErr(r.rest(), "expected %q", expected)
	}
	r.Consume(1)
	return nil
}
