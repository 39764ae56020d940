package dsp

import (
	"fmt"
	"reflect"

	"github.com/pkg/errors"
)

type Initer interface {
	InitAudio(Params)
}

// Params are fixed for the lifetime of an engine.
type Params struct {
	SampleRate  float64
	BlockFrames int
}

func (p *Params) InitAudio(q Params) { *p = q }

func (p Params) Validate() error {
	if !(p.SampleRate > 0) {
		return errors.Errorf("dsp: sample rate must be positive, got %v", p.SampleRate)
	}
	if p.BlockFrames <= 0 {
		return errors.Errorf("dsp: block size must be positive, got %d", p.BlockFrames)
	}
	return nil
}

// Frames converts seconds to a whole number of frames.
func (p Params) Frames(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds*p.SampleRate + .5)
}

// Init walks x and calls InitAudio on every exported value that implements Initer.
func Init(x interface{}, p Params) {
	if err := initVal(reflect.ValueOf(x), p); err != nil {
		panic("dsp.Init: " + err.Error())
	}
}

var initerType = reflect.TypeOf(new(Initer)).Elem()

func initVal(v reflect.Value, p Params) (err error) {
	if !v.IsValid() || v.Kind() == reflect.Ptr && v.IsNil() || !v.CanInterface() {
		return
	}

	v = reflect.Indirect(v)
	if v.CanAddr() && v.Type().Name() != "" && v.Kind() != reflect.Interface {
		v = v.Addr()
	}
	if x, ok := v.Interface().(Initer); ok {
		x.InitAudio(p)
		return
	}

	defer func() {
		if err != nil {
			// append v to the Init stack trace
			err = fmt.Errorf("%s\n\t%#v", err, v)
		}
	}()
	if t := v.Type(); reflect.PtrTo(t).Implements(initerType) {
		return fmt.Errorf("%s does not implement dsp.Initer but *%s does.\nInit stack:", t, t)
	}

	v = reflect.Indirect(v)
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if err = initVal(v.Field(i), p); err != nil {
				return
			}
		}
	case reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			if err = initVal(v.Index(i), p); err != nil {
				return
			}
		}
	}

	return
}
