package units

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// ParseUnit parses a unit expression such as "kg*m/s**2", "m^0.5", "1/s" or
// "(J/mol)/K". Names resolve through LookupOrCreate; exponents are real numbers,
// optionally signed or parenthesized ("s**-2", "m^(1/3)"); bare numbers scale the
// result ("100*yard"). "*" and "·" multiply, "/" divides left to right, and "**" or
// "^" binds tighter than both.
func (r *Registry) ParseUnit(expr string) (*Unit, error) {
	p := &unitParser{reg: r, src: expr}
	p.s.Init(strings.NewReader(expr))
	p.s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	p.s.Error = func(_ *scanner.Scanner, msg string) {
		if p.err == nil {
			p.err = p.errorf("%s", msg)
		}
	}
	p.next()
	if p.tok == scanner.EOF {
		return nil, p.errorf("empty expression")
	}
	u, err := p.product()
	if err != nil {
		return nil, err
	}
	if p.err != nil {
		return nil, p.err
	}
	if p.tok != scanner.EOF {
		return nil, p.errorf("unexpected %q", p.s.TokenText())
	}
	return u, nil
}

type unitParser struct {
	reg *Registry
	src string
	s   scanner.Scanner
	tok rune
	pow bool // current '*' token is the first half of "**"
	err error
}

func (p *unitParser) next() {
	p.tok = p.s.Scan()
	p.pow = false
	if p.tok == '*' && p.s.Peek() == '*' {
		p.s.Scan()
		p.pow = true
	}
}

func (p *unitParser) errorf(format string, args ...any) error {
	return &UnitsError{Reason: fmt.Sprintf("invalid unit expression %q: %s", p.src, fmt.Sprintf(format, args...))}
}

func (p *unitParser) product() (*Unit, error) {
	u, err := p.power()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case (p.tok == '*' && !p.pow) || p.tok == '·':
			p.next()
			rhs, err := p.power()
			if err != nil {
				return nil, err
			}
			u = u.Multiply(rhs)
		case p.tok == '/':
			p.next()
			rhs, err := p.power()
			if err != nil {
				return nil, err
			}
			u = u.Divide(rhs)
		default:
			return u, nil
		}
	}
}

func (p *unitParser) power() (*Unit, error) {
	base, err := p.atom()
	if err != nil {
		return nil, err
	}
	if !p.pow && p.tok != '^' {
		return base, nil
	}
	p.next()
	exp, err := p.exponent()
	if err != nil {
		return nil, err
	}
	return base.Power(exp), nil
}

func (p *unitParser) atom() (*Unit, error) {
	switch p.tok {
	case scanner.Ident:
		name := p.s.TokenText()
		p.next()
		return p.reg.LookupOrCreate(name)
	case scanner.Int, scanner.Float:
		v, err := p.number()
		if err != nil {
			return nil, err
		}
		if v == 1 {
			return p.reg.dimensionless, nil
		}
		if v <= 0 {
			return nil, p.errorf("scale factor must be positive, got %v", v)
		}
		return p.reg.dimensionless.ScaledBy(v), nil
	case '(':
		p.next()
		u, err := p.product()
		if err != nil {
			return nil, err
		}
		if p.tok != ')' {
			return nil, p.errorf("missing )")
		}
		p.next()
		return u, nil
	case scanner.EOF:
		return nil, p.errorf("unexpected end of expression")
	}
	return nil, p.errorf("unexpected %q", p.s.TokenText())
}

// exponent parses a signed number, or a parenthesized signed number or ratio.
func (p *unitParser) exponent() (float64, error) {
	if p.tok != '(' {
		return p.signedNumber()
	}
	p.next()
	v, err := p.signedNumber()
	if err != nil {
		return 0, err
	}
	if p.tok == '/' {
		p.next()
		d, err := p.signedNumber()
		if err != nil {
			return 0, err
		}
		if d == 0 {
			return 0, p.errorf("zero denominator in exponent")
		}
		v /= d
	}
	if p.tok != ')' {
		return 0, p.errorf("missing ) in exponent")
	}
	p.next()
	return v, nil
}

func (p *unitParser) signedNumber() (float64, error) {
	sign := 1.0
	switch p.tok {
	case '-':
		sign = -1
		p.next()
	case '+':
		p.next()
	}
	v, err := p.number()
	return sign * v, err
}

func (p *unitParser) number() (float64, error) {
	if p.tok != scanner.Int && p.tok != scanner.Float {
		return 0, p.errorf("expected a number, got %q", p.s.TokenText())
	}
	v, err := strconv.ParseFloat(p.s.TokenText(), 64)
	if err != nil {
		return 0, p.errorf("bad number %q", p.s.TokenText())
	}
	p.next()
	return v, nil
}
