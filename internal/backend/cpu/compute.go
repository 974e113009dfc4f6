package cpu

import (
	"errors"
	"fmt"

	"github.com/born-ml/spacetodepth/internal/parallel"
	"github.com/born-ml/spacetodepth/internal/tensor"
)

// program is a compiled host kernel.
type program struct {
	backend *CPUBackend
	kernel  *tensor.Kernel
}

func (p *program) Name() string { return p.kernel.Name }

// CompileKernel registers k's host implementation. Results are cached by name.
func (cpu *CPUBackend) CompileKernel(k *tensor.Kernel) (tensor.Program, error) {
	if k == nil || k.Name == "" {
		return nil, errors.New("cpu: kernel has no name")
	}
	if k.Host == nil {
		return nil, fmt.Errorf("cpu: kernel %s has no host implementation", k.Name)
	}

	cpu.mu.Lock()
	defer cpu.mu.Unlock()
	if p, ok := cpu.programs[k.Name]; ok {
		return p, nil
	}
	p := &program{backend: cpu, kernel: k}
	cpu.programs[k.Name] = p
	cpu.stats.Compiles++
	return p, nil
}

// Dispatch runs the host kernel over every output texel.
func (cpu *CPUBackend) Dispatch(p tensor.Program, output tensor.Texture, inputs []tensor.Binding, uniforms []tensor.Uniform) error {
	prog, ok := p.(*program)
	if !ok || prog.backend != cpu {
		return errors.New("cpu: program was not compiled by this device")
	}
	k := prog.kernel

	out, err := cpu.own(output)
	if err != nil {
		return fmt.Errorf("cpu: %s output: %w", k.Name, err)
	}
	bound, err := k.Bind(inputs)
	if err != nil {
		return fmt.Errorf("cpu: %w", err)
	}
	values, err := k.UniformValues(uniforms)
	if err != nil {
		return fmt.Errorf("cpu: %w", err)
	}

	inv := &tensor.HostInvocation{
		Output:   out.view(),
		Inputs:   make(map[string]tensor.HostView, len(bound)),
		Uniforms: make(map[string]int32, len(values)),
		For: func(n int, f func(i int) error) error {
			return parallel.For(n, f, cpu.cfg.Parallel)
		},
	}
	for i, name := range k.Inputs {
		tex, err := cpu.own(bound[i])
		if err != nil {
			return fmt.Errorf("cpu: %s input %q: %w", k.Name, name, err)
		}
		inv.Inputs[name] = tex.view()
	}
	for i, name := range k.Uniforms {
		inv.Uniforms[name] = values[i]
	}

	if err := k.Host(inv); err != nil {
		return fmt.Errorf("cpu: %s: %w", k.Name, err)
	}

	cpu.mu.Lock()
	cpu.stats.Dispatches++
	cpu.mu.Unlock()
	return nil
}
