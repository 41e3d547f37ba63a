// Command railhost is the interactive host-side CLI for a railpulse
// device: it opens the serial connection, lets an operator send raw
// motion frames, and can export the reconstructed trajectory.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"railpulse/host/rail"
	"railpulse/internal/trajectory/export"
)

var device = flag.String("device", "/dev/ttyACM0", "Serial device path")

func main() {
	flag.Parse()
	dev := *device

	fmt.Println("railpulse host")
	fmt.Println("==============")

	sess, err := rail.Connect(dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer sess.Close()

	fmt.Printf("connected to %s, device ready\n", dev)
	fmt.Println("type 'help' for commands, 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "quit", "exit", "q":
			return
		case "help", "?":
			printHelp()
		case "run":
			if err := handleRun(sess, fields[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "export":
			if err := handleExport(sess, fields[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		case "pose":
			if err := handlePose(sess, fields[1:]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			fmt.Printf("unknown command: %s\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  run <motor_mask> <dir_mask> <hz> <ms>   send a TimeBounded frame
  pose <t_rel>                            print reconstructed pose at t_rel
  export <file.csv>                       write the pose at t_rel=0 as a one-row quaternion+translation CSV
  quit                                    exit`)
}

func handleRun(sess *rail.Session, args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: run <motor_mask> <dir_mask> <hz> <ms>")
	}
	motorMask, err := strconv.ParseUint(args[0], 10, 8)
	if err != nil {
		return err
	}
	dirMask, err := strconv.ParseUint(args[1], 10, 8)
	if err != nil {
		return err
	}
	hz, err := strconv.ParseInt(args[2], 10, 32)
	if err != nil {
		return err
	}
	ms, err := strconv.ParseInt(args[3], 10, 32)
	if err != nil {
		return err
	}

	frame := rail.BuildFrame(true, byte(motorMask), byte(dirMask), int32(hz), int32(ms))
	return sess.SendFrame(frame)
}

func handlePose(sess *rail.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pose <t_rel>")
	}
	t, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	x, y := sess.Trajectory.PoseAt(t)
	fmt.Printf("x=%.3f y=%.3f\n", x, y)
	return nil
}

func handleExport(sess *rail.Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: export <file.csv>")
	}
	f, err := os.Create(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	w := export.NewCSVWriter(f, 0.5/320000, 0.5/320000, 0)
	x, y := sess.Trajectory.PoseAt(0)
	if err := w.WriteSample(export.Sample{TRel: 0, X: x, Y: y}); err != nil {
		return err
	}
	return w.Flush()
}
